package configs

import (
	"time"

	"github.com/spf13/viper"
)

// MQType 消息队列类型.
type MQType string

const (
	MQTypeNATS   MQType = "nats"
	MQTypeRedis  MQType = "redis"
	MQTypeMemory MQType = "memory"
)

// MQConfig 生命周期事件（回收站、发布）使用的消息队列配置.
type MQConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Type    MQType         `mapstructure:"type"    rule:"oneof=nats redis memory"`
	Common  MQCommonConfig `mapstructure:"common"`
	NATS    MQNATSConfig   `mapstructure:"nats"`
	Redis   MQRedisConfig  `mapstructure:"redis"`
}

// MQCommonConfig 连接与指标配置，NATS 使用全部字段，Redis 只使用 ClientID 与指标.
type MQCommonConfig struct {
	URL           string `mapstructure:"url"            rule:"omitempty,hostname_port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	ClientID      string `mapstructure:"client_id"      rule:"required"`
	MaxReconnects int    `mapstructure:"max_reconnects" rule:"min=-1,max=100"`
	ReconnectWait int    `mapstructure:"reconnect_wait" rule:"min=1,max=300"` // 秒
	// StrictConnect 为 true 时启动阶段连接失败直接报错，否则后台重试
	StrictConnect bool   `mapstructure:"strict_connect"`
	PingInterval  int    `mapstructure:"ping_interval"  rule:"min=1,max=300"` // 秒
	MaxPingsOut   int    `mapstructure:"max_pings_out"  rule:"min=1,max=10"`
	BufferSize    int    `mapstructure:"buffer_size"    rule:"min=1024,max=16777216"`
	EnableMetrics bool   `mapstructure:"enable_metrics"`
	Endpoint      string `mapstructure:"endpoint"` // watermill 指标独立监听地址
}

// MQNATSConfig NATS（JetStream）配置.
type MQNATSConfig struct {
	JetStream     bool     `mapstructure:"jetstream"`
	AutoProvision bool     `mapstructure:"auto_provision"`
	TrackMsgID    bool     `mapstructure:"track_msg_id"` // 以事件 ID 去重
	AckAsync      bool     `mapstructure:"ack_async"`
	DurablePrefix string   `mapstructure:"durable_prefix"`
	QueueGroup    string   `mapstructure:"queue_group"` // 非空时多实例负载均衡消费
	JWT           string   `mapstructure:"jwt"`
	NKey          string   `mapstructure:"nkey"`
	ClusterURLs   []string `mapstructure:"cluster_urls"`
}

// MQRedisConfig Redis Streams 配置，每个 topic 对应一个 stream.
type MQRedisConfig struct {
	Addr          string `mapstructure:"addr"           rule:"hostname_port"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"             rule:"min=0,max=15"`
	ConsumerGroup string `mapstructure:"consumer_group" rule:"required"`
	MaxLen        int64  `mapstructure:"max_len"        rule:"min=0"` // 近似裁剪长度，0 不裁剪
	BlockMillis   int    `mapstructure:"block_ms"       rule:"min=10"`
}

// Block XREADGROUP 单次阻塞时间.
func (c *MQRedisConfig) Block() time.Duration {
	return time.Duration(c.BlockMillis) * time.Millisecond
}

// setDefaults 设置MQ配置的默认值.
func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.enabled", false)
	v.SetDefault("mq.type", MQTypeNATS)

	v.SetDefault("mq.common.url", "localhost:4222")
	v.SetDefault("mq.common.client_id", "postvault")
	v.SetDefault("mq.common.max_reconnects", 5)
	v.SetDefault("mq.common.reconnect_wait", 5)
	v.SetDefault("mq.common.strict_connect", false)
	v.SetDefault("mq.common.ping_interval", 20)
	v.SetDefault("mq.common.max_pings_out", 3)
	v.SetDefault("mq.common.buffer_size", 32*1024)
	v.SetDefault("mq.common.enable_metrics", false)
	v.SetDefault("mq.common.endpoint", ":9092")

	v.SetDefault("mq.nats.jetstream", true)
	v.SetDefault("mq.nats.auto_provision", true)
	v.SetDefault("mq.nats.track_msg_id", true)
	v.SetDefault("mq.nats.ack_async", false)
	v.SetDefault("mq.nats.durable_prefix", "postvault")
	v.SetDefault("mq.nats.queue_group", "postvault")
	v.SetDefault("mq.nats.cluster_urls", []string{})

	v.SetDefault("mq.redis.addr", "localhost:6379")
	v.SetDefault("mq.redis.db", 0)
	v.SetDefault("mq.redis.consumer_group", "postvault")
	v.SetDefault("mq.redis.max_len", 100000)
	v.SetDefault("mq.redis.block_ms", 2000)
}
