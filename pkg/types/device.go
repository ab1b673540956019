package types

import (
	"fmt"
	"strings"
)

// DeviceType identifies the push platform of a device
type DeviceType string

const (
	DeviceTypeAndroid DeviceType = "android"
	DeviceTypeIOS     DeviceType = "ios"
	DeviceTypeHuawei  DeviceType = "huawei"
	DeviceTypeOther   DeviceType = "other"
)

// ParseDeviceType accepts a device type name in any case
func ParseDeviceType(s string) (DeviceType, error) {
	switch DeviceType(strings.ToLower(s)) {
	case DeviceTypeAndroid:
		return DeviceTypeAndroid, nil
	case DeviceTypeIOS:
		return DeviceTypeIOS, nil
	case DeviceTypeHuawei:
		return DeviceTypeHuawei, nil
	case DeviceTypeOther:
		return DeviceTypeOther, nil
	default:
		return "", fmt.Errorf("unknown device type: %s", s)
	}
}
