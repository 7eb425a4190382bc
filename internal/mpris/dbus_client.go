package mpris

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const getNameOwnerMethod = "org.freedesktop.DBus.GetNameOwner"

// DBusClient is the slice of the session bus the engine drives a player through.
//
//go:generate mockgen -destination=mocks/dbus_client_mock.go -package=mocks github.com/genricoloni/audiobar/internal/mpris DBusClient
type DBusClient interface {
	Close() error

	// AddMatchSignal subscribes to PropertiesChanged and NameOwnerChanged
	AddMatchSignal(options ...dbus.MatchOption) error

	// Signal routes matched signals to ch; ch is closed when the connection drops
	Signal(ch chan<- *dbus.Signal)

	// GetNameOwner resolves the player's well-known name to its unique name,
	// which is what signals carry as their sender
	GetNameOwner(name string) (string, error)

	// GetProperty reads one property of the player, for example
	// org.mpris.MediaPlayer2.Player.Metadata or .Position on /org/mpris/MediaPlayer2
	GetProperty(player, path, prop string) (dbus.Variant, error)

	// Call runs a player method (OpenUri, Play, Pause, SetPosition) and
	// returns the error reply, if any
	Call(ctx context.Context, player, path, method string, args ...any) error
}

// StdDBusClient talks to the user's session bus through godbus
type StdDBusClient struct {
	conn *dbus.Conn
}

// NewStdDBusClient connects to the shared session bus
func NewStdDBusClient() (*StdDBusClient, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, err
	}
	return &StdDBusClient{conn: conn}, nil
}

func (c *StdDBusClient) Close() error {
	return c.conn.Close()
}

func (c *StdDBusClient) AddMatchSignal(options ...dbus.MatchOption) error {
	return c.conn.AddMatchSignal(options...)
}

func (c *StdDBusClient) Signal(ch chan<- *dbus.Signal) {
	c.conn.Signal(ch)
}

func (c *StdDBusClient) GetNameOwner(name string) (string, error) {
	var owner string
	if err := c.conn.BusObject().Call(getNameOwnerMethod, 0, name).Store(&owner); err != nil {
		return "", fmt.Errorf("GetNameOwner %s: %w", name, err)
	}
	return owner, nil
}

func (c *StdDBusClient) GetProperty(player, path, prop string) (dbus.Variant, error) {
	v, err := c.conn.Object(player, dbus.ObjectPath(path)).GetProperty(prop)
	if err != nil {
		return dbus.Variant{}, fmt.Errorf("get %s: %w", prop, err)
	}
	return v, nil
}

// Call blocks until the player replies or ctx is done
func (c *StdDBusClient) Call(ctx context.Context, player, path, method string, args ...any) error {
	call := c.conn.Object(player, dbus.ObjectPath(path)).CallWithContext(ctx, method, 0, args...)
	if call.Err != nil {
		return fmt.Errorf("%s: %w", method, call.Err)
	}
	return nil
}
