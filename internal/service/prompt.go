package service

import (
	"github.com/godbus/dbus/v5"

	dbtypes "github.com/gosecrets/secretsd/internal/dbus"
)

// nullPrompt is the static, always-null Prompt object. Spec section 1 treats
// all collections as permanently unlocked, so nothing in this daemon ever
// produces a prompt that requires user interaction; every operation that
// spec section 6 says returns a prompt path returns dbtypes.NullPath
// directly instead of this object's path. It is exported once, at a fixed
// path, purely so introspection of the prompt interface has somewhere to
// resolve if a client goes looking.
type nullPrompt struct{}

// Prompt implements org.freedesktop.Secret.Prompt.Prompt. It returns
// immediately and emits no Completed signal, since no real prompt flow
// exists.
func (nullPrompt) Prompt(_ string) *dbus.Error {
	return nil
}

// Dismiss implements org.freedesktop.Secret.Prompt.Dismiss.
func (nullPrompt) Dismiss() *dbus.Error {
	return nil
}

// exportNullPrompt publishes the static prompt object at
// "<svc-prefix>/prompt/p0" and returns its path.
func exportNullPrompt(conn *dbus.Conn) (dbus.ObjectPath, error) {
	path := dbtypes.PromptPath(0)
	if err := conn.Export(nullPrompt{}, path, dbtypes.PromptInterface); err != nil {
		return "", err
	}
	introXML := `<node>
  <interface name="org.freedesktop.Secret.Prompt">
    <method name="Prompt">
      <arg name="window-id" type="s" direction="in"/>
    </method>
    <method name="Dismiss"/>
    <signal name="Completed">
      <arg name="dismissed" type="b"/>
      <arg name="result" type="v"/>
    </signal>
  </interface>
</node>`
	if err := conn.Export(introspect(introXML), path, dbtypes.IntrospectableInterface); err != nil {
		conn.Export(nil, path, dbtypes.PromptInterface)
		return "", err
	}
	return path, nil
}
