// Package providers imports all vhost provider packages to trigger their init() registration.
package providers

import (
	_ "github.com/yuriy-kovalchuk/yk-vhost-manager/internal/vhost/approximated"
)
