//go:build linux

package rtlink

import (
	"github.com/hkwi/nlmsg"
	"github.com/pkg/errors"
)

// Get asks for a single link. c must be a NETLINK_ROUTE socket.
func Get(c *nlmsg.Conn, index int32, name string) (Link, error) {
	b := nlmsg.NewBuilder()
	if err := NewGetLink(b, index, name, false); err != nil {
		return Link{}, err
	}
	var ret Link
	found := false
	if err := c.Execute(b, func(m nlmsg.Msg) (nlmsg.Status, error) {
		if link, err := ParseLink(m); err != nil {
			return nlmsg.Stop, err
		} else {
			ret = link
			found = true
		}
		if c.Flags&nlmsg.NL_NO_AUTO_ACK != 0 {
			return nlmsg.Stop, nil
		}
		return nlmsg.Continue, nil
	}); err != nil {
		return ret, err
	}
	if !found {
		return ret, errors.Wrap(nlmsg.NLE_NOMSG, "response empty")
	}
	return ret, nil
}

func GetByName(c *nlmsg.Conn, name string) (Link, error) {
	if link, err := Get(c, 0, name); err != nil {
		return link, errors.Wrapf(err, "link %s", name)
	} else if link.Name != name {
		return link, errors.Wrapf(nlmsg.NLE_NOMSG, "asked for %s, got %s", name, link.Name)
	} else {
		return link, nil
	}
}

func GetNameByIndex(c *nlmsg.Conn, index int) (string, error) {
	if link, err := Get(c, int32(index), ""); err != nil {
		return "", errors.Wrapf(err, "link %d", index)
	} else if link.Index != int32(index) {
		return "", errors.Wrapf(nlmsg.NLE_NOMSG, "asked for %d, got %d", index, link.Index)
	} else {
		return link.Name, nil
	}
}

// Links dumps every link.
func Links(c *nlmsg.Conn) ([]Link, error) {
	b := nlmsg.NewBuilder()
	if err := NewGetLink(b, 0, "", true); err != nil {
		return nil, err
	}
	var ret []Link
	if err := c.Execute(b, func(m nlmsg.Msg) (nlmsg.Status, error) {
		if link, err := ParseLink(m); err != nil {
			return nlmsg.Stop, err
		} else {
			ret = append(ret, link)
		}
		return nlmsg.Continue, nil
	}); err != nil {
		return nil, errors.Wrap(err, "dump links")
	}
	return ret, nil
}
