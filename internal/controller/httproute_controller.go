package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	"k8s.io/client-go/util/retry"

	"github.com/yuriy-kovalchuk/yk-vhost-manager/internal/config"
	"github.com/yuriy-kovalchuk/yk-vhost-manager/internal/vhost"
)

const (
	finalizerName              = "vhost.yk/cleanup"
	managedHostnamesAnnotation = "vhost.yk/managed-hostnames"
)

// HTTPRouteReconciler keeps a virtual host in place for every HTTPRoute
// hostname that has a configured target.
type HTTPRouteReconciler struct {
	client.Client
	APIReader client.Reader
	Log       logr.Logger
	Targets   *config.TargetMap
	VHosts    vhost.Provider
	Upsert    bool // when true, update existing virtual hosts; when false, only create missing ones
	// DNSRecheck requeues a route whose hostnames do not yet resolve to
	// their target's dns_value. Zero disables requeueing.
	DNSRecheck time.Duration
}

func (r *HTTPRouteReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	var route gatewayv1.HTTPRoute
	if err := r.APIReader.Get(ctx, req.NamespacedName, &route); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	// Handle deletion
	if !route.DeletionTimestamp.IsZero() {
		if controllerutil.ContainsFinalizer(&route, finalizerName) {
			r.Log.Info("deleting virtual hosts for HTTPRoute", "name", req.NamespacedName)
			hostnames := annotatedHostnames(&route)
			for _, h := range r.managedHostnames(&route) {
				if !slices.Contains(hostnames, h) {
					hostnames = append(hostnames, h)
				}
			}
			for _, hostname := range hostnames {
				if err := r.deleteVHost(ctx, hostname); err != nil {
					return ctrl.Result{}, err
				}
			}

			err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
				if err := r.APIReader.Get(ctx, req.NamespacedName, &route); err != nil {
					return err
				}
				controllerutil.RemoveFinalizer(&route, finalizerName)
				return r.Update(ctx, &route)
			})
			if err != nil {
				return ctrl.Result{}, fmt.Errorf("failed to remove finalizer: %w", err)
			}
		}
		return ctrl.Result{}, nil
	}

	if !controllerutil.ContainsFinalizer(&route, finalizerName) {
		err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
			if err := r.APIReader.Get(ctx, req.NamespacedName, &route); err != nil {
				return err
			}
			controllerutil.AddFinalizer(&route, finalizerName)
			return r.Update(ctx, &route)
		})
		if err != nil {
			return ctrl.Result{}, fmt.Errorf("failed to add finalizer: %w", err)
		}
		return ctrl.Result{}, nil
	}

	if r.Log.V(2).Enabled() {
		r.Log.V(2).Info("reconciling route\n" + FormatHTTPRoute(&route, r.Targets))
	}

	previous := annotatedHostnames(&route)
	current := r.managedHostnames(&route)

	// Delete virtual hosts whose hostnames were removed from the spec
	for _, oldHost := range previous {
		if !slices.Contains(current, oldHost) {
			r.Log.Info("hostname removed from HTTPRoute, deleting virtual host", "hostname", oldHost)
			if err := r.deleteVHost(ctx, oldHost); err != nil {
				return ctrl.Result{}, err
			}
		}
	}

	// Update and Create
	pendingDNS := false
	for _, hostname := range current {
		target, _ := r.Targets.Lookup(hostname)
		r.Log.V(1).Info("resolved hostname to target", "hostname", hostname, "target", target.Address)

		vh := vhost.Route{
			Hostname:    hostname,
			Target:      target.Address,
			TargetPorts: target.Ports,
			KeepHost:    target.KeepHost,
			RedirectWWW: target.RedirectWWW,
			Meta:        map[string]string{"route": req.NamespacedName.String()},
		}

		if err := r.ensureVHost(ctx, vh); err != nil {
			return ctrl.Result{}, err
		}

		if target.DNSValue == "" {
			continue
		}
		ok, err := r.VHosts.Verify(ctx, hostname, target.DNSValue)
		switch {
		case err != nil:
			dnsChecks.WithLabelValues(dnsResultError).Inc()
			r.Log.Error(err, "checking DNS for virtual host", "hostname", hostname)
			pendingDNS = true
		case !ok:
			dnsChecks.WithLabelValues(dnsResultMismatch).Inc()
			r.Log.Info("DNS does not point at the cluster yet", "hostname", hostname, "expected", target.DNSValue)
			pendingDNS = true
		default:
			dnsChecks.WithLabelValues(dnsResultMatch).Inc()
			r.Log.V(1).Info("DNS verified", "hostname", hostname, "value", target.DNSValue)
		}
	}

	// Update annotation with the current list of managed hostnames
	if !reflect.DeepEqual(previous, current) {
		err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
			if err := r.APIReader.Get(ctx, req.NamespacedName, &route); err != nil {
				return err
			}
			if route.Annotations == nil {
				route.Annotations = make(map[string]string)
			}
			data, _ := json.Marshal(current)
			route.Annotations[managedHostnamesAnnotation] = string(data)
			return r.Update(ctx, &route)
		})
		if err != nil {
			return ctrl.Result{}, fmt.Errorf("failed to update managed-hostnames annotation: %w", err)
		}
	}

	if pendingDNS && r.DNSRecheck > 0 {
		return ctrl.Result{RequeueAfter: r.DNSRecheck}, nil
	}
	return ctrl.Result{}, nil
}

// ensureVHost creates the virtual host, or updates it when Upsert is set.
func (r *HTTPRouteReconciler) ensureVHost(ctx context.Context, vh vhost.Route) error {
	if r.Upsert {
		err := r.VHosts.Upsert(ctx, vh)
		observe(opUpsert, err)
		if err != nil {
			return fmt.Errorf("upserting virtual host for %s: %w", vh.Hostname, err)
		}
		r.Log.Info("upserted virtual host", "hostname", vh.Hostname, "target", vh.Target)
		return nil
	}

	// Non-upsert path: only create if missing
	exists, err := r.VHosts.Exists(ctx, vh.Hostname)
	if err != nil {
		return fmt.Errorf("checking virtual host for %s: %w", vh.Hostname, err)
	}
	if exists {
		r.Log.V(1).Info("virtual host already exists, skipping", "hostname", vh.Hostname)
		return nil
	}
	err = r.VHosts.Create(ctx, vh)
	observe(opCreate, err)
	if err != nil {
		return fmt.Errorf("creating virtual host for %s: %w", vh.Hostname, err)
	}
	r.Log.Info("created virtual host", "hostname", vh.Hostname, "target", vh.Target)
	return nil
}

// deleteVHost treats an already-missing virtual host as deleted.
func (r *HTTPRouteReconciler) deleteVHost(ctx context.Context, hostname string) error {
	err := r.VHosts.Delete(ctx, hostname)
	if errors.Is(err, vhost.ErrNotFound) {
		r.Log.V(1).Info("virtual host already gone", "hostname", hostname)
		err = nil
	}
	observe(opDelete, err)
	if err != nil {
		return fmt.Errorf("deleting virtual host for %s: %w", hostname, err)
	}
	r.Log.Info("deleted virtual host", "hostname", hostname)
	return nil
}

// managedHostnames returns the normalized spec hostnames that have a target.
func (r *HTTPRouteReconciler) managedHostnames(route *gatewayv1.HTTPRoute) []string {
	hostnames := make([]string, 0, len(route.Spec.Hostnames))
	for _, h := range route.Spec.Hostnames {
		name := vhost.NormalizeHostname(string(h))
		if _, ok := r.Targets.Lookup(name); !ok {
			r.Log.V(1).Info("no target mapping found for hostname", "hostname", name)
			continue
		}
		if !slices.Contains(hostnames, name) {
			hostnames = append(hostnames, name)
		}
	}
	return hostnames
}

func annotatedHostnames(route *gatewayv1.HTTPRoute) []string {
	hostnames := []string{}
	if val, ok := route.Annotations[managedHostnamesAnnotation]; ok {
		_ = json.Unmarshal([]byte(val), &hostnames)
	}
	return hostnames
}

func (r *HTTPRouteReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&gatewayv1.HTTPRoute{}).
		WithEventFilter(predicate.Funcs{
			UpdateFunc: func(e event.UpdateEvent) bool {
				// Reconcile if the Spec (Generation) has changed.
				if e.ObjectOld.GetGeneration() != e.ObjectNew.GetGeneration() {
					return true
				}
				// Also reconcile if finalizers have changed (e.g. our finalizer was added).
				if len(e.ObjectOld.GetFinalizers()) != len(e.ObjectNew.GetFinalizers()) {
					return true
				}
				// Ignore status-only updates.
				return false
			},
		}).
		Complete(r)
}
