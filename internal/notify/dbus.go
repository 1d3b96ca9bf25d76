//go:build linux

package notify

import (
	"context"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	dbusNotifyDest      = "org.freedesktop.Notifications"
	dbusNotifyPath      = "/org/freedesktop/Notifications"
	dbusNotifyInterface = "org.freedesktop.Notifications"

	// callTimeout bounds each D-Bus call.
	callTimeout = 2 * time.Second
)

// dbusNotifier sends notifications via D-Bus.
type dbusNotifier struct {
	obj     dbus.BusObject
	timeout time.Duration
}

func newDBusNotifier(obj dbus.BusObject) *dbusNotifier {
	return &dbusNotifier{obj: obj, timeout: callTimeout}
}

// New creates a Notifier that sends desktop notifications via D-Bus.
// Returns a no-op notifier if D-Bus is unavailable.
func New() (Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		// D-Bus not available, return no-op notifier (intentional graceful degradation)
		return &stubNotifier{}, nil //nolint:nilerr // graceful fallback when D-Bus unavailable
	}

	return newDBusNotifier(conn.Object(dbusNotifyDest, dbusNotifyPath)), nil
}

// Notify sends a notification via D-Bus.
func (n *dbusNotifier) Notify(notif Notification) (uint32, error) {
	// Build hints map
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(notif.Urgency)),
		"desktop-entry": dbus.MakeVariant(appName),
	}

	// D-Bus Notify method signature:
	// Notify(app_name, replaces_id, icon, summary, body, actions, hints, timeout) -> id
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	call := n.obj.CallWithContext(
		ctx,
		dbusNotifyInterface+".Notify",
		0,                // flags
		appDisplayName,   // app_name
		notif.ReplacesID, // replaces_id
		notif.Icon,       // app_icon (path or icon name)
		notif.Title,      // summary
		notif.Body,       // body
		[]string{},       // actions (empty for now)
		hints,            // hints
		notif.Timeout,    // expire_timeout
	)

	if call.Err != nil {
		return 0, call.Err
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, err
	}

	return id, nil
}

// Close closes a notification by ID.
func (n *dbusNotifier) Close(id uint32) error {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	return n.obj.CallWithContext(ctx, dbusNotifyInterface+".CloseNotification", 0, id).Err
}

