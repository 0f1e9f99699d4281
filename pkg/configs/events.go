package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled  bool                 `mapstructure:"enabled"` // 总开关
	Transfer TransferEventsConfig `mapstructure:"transfer"`
}

// TransferEventsConfig 针对传输生命周期的事件开关。
type TransferEventsConfig struct {
	Created  bool `mapstructure:"created"`
	Ready    bool `mapstructure:"ready"`
	Expired  bool `mapstructure:"expired"`
	Deleted  bool `mapstructure:"deleted"`
	Accessed bool `mapstructure:"accessed"`
	Shared   bool `mapstructure:"shared"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)

	// 传输生命周期事件：默认仅开启最小必要集，避免噪声过大
	v.SetDefault("events.transfer.created", true)
	v.SetDefault("events.transfer.ready", true)
	v.SetDefault("events.transfer.deleted", true)
	v.SetDefault("events.transfer.shared", true)

	// 可选事件：默认关闭，按需开启
	v.SetDefault("events.transfer.expired", false)
	v.SetDefault("events.transfer.accessed", false) // 访问事件量可能很大，默认关闭
}
