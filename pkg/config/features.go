package config

// Features toggles the functional areas of a client
type Features struct {
	EnableTracking          bool `yaml:"enableTracking" env:"RELEVA_ENABLE_TRACKING"`
	EnableScreenTracking    bool `yaml:"enableScreenTracking" env:"RELEVA_ENABLE_SCREEN_TRACKING"`
	EnableInAppMessaging    bool `yaml:"enableInAppMessaging" env:"RELEVA_ENABLE_IN_APP_MESSAGING"`
	EnablePushNotifications bool `yaml:"enablePushNotifications" env:"RELEVA_ENABLE_PUSH_NOTIFICATIONS"`
	EnableAnalytics         bool `yaml:"enableAnalytics" env:"RELEVA_ENABLE_ANALYTICS"`
}

// Full enables everything
func Full() Features {
	return Features{
		EnableTracking:          true,
		EnableScreenTracking:    true,
		EnableInAppMessaging:    true,
		EnablePushNotifications: true,
		EnableAnalytics:         true,
	}
}

// MessagingOnly disables tracking and keeps in-app messaging
func MessagingOnly() Features {
	return Features{EnableInAppMessaging: true}
}

// TrackingOnly keeps tracking and analytics without messaging
func TrackingOnly() Features {
	return Features{
		EnableTracking:       true,
		EnableScreenTracking: true,
		EnableAnalytics:      true,
	}
}

// PushOnly keeps push notification handling only
func PushOnly() Features {
	return Features{EnablePushNotifications: true}
}

// Preset returns the named feature preset
func Preset(name string) (Features, bool) {
	switch name {
	case "full":
		return Full(), true
	case "messaging-only":
		return MessagingOnly(), true
	case "tracking-only":
		return TrackingOnly(), true
	case "push-only":
		return PushOnly(), true
	default:
		return Features{}, false
	}
}
