//go:build linux

package genl

import (
	"github.com/hkwi/nlmsg"
	"github.com/pkg/errors"
)

// Resolve asks nlctrl for the family called name. c must be a
// NETLINK_GENERIC socket.
func Resolve(c *nlmsg.Conn, name string) (Family, error) {
	b := nlmsg.NewBuilder()
	if err := NewGetFamily(b, name); err != nil {
		return Family{}, err
	}
	var ret Family
	found := false
	if err := c.Execute(b, func(m nlmsg.Msg) (nlmsg.Status, error) {
		if fam, err := ParseFamily(m); err != nil {
			return nlmsg.Stop, err
		} else if fam.Name == name {
			ret = fam
			found = true
		}
		return nlmsg.Continue, nil
	}); err != nil {
		return ret, errors.Wrapf(err, "resolve %s", name)
	}
	if !found {
		return ret, errors.Wrapf(nlmsg.NLE_NOATTR, "resolve %s: no such family in reply", name)
	}
	return ret, nil
}

// Families dumps every registered generic netlink family.
func Families(c *nlmsg.Conn) ([]Family, error) {
	b := nlmsg.NewBuilder()
	if err := NewGetFamily(b, ""); err != nil {
		return nil, err
	}
	var ret []Family
	if err := c.Execute(b, func(m nlmsg.Msg) (nlmsg.Status, error) {
		if fam, err := ParseFamily(m); err != nil {
			return nlmsg.Stop, err
		} else {
			ret = append(ret, fam)
		}
		return nlmsg.Continue, nil
	}); err != nil {
		return nil, errors.Wrap(err, "dump families")
	}
	return ret, nil
}
