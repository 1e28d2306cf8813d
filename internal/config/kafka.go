package config

import "time"

type Kafka struct {
	Addresses []string `env:"KAFKA_ADDRESSES,required" envSeparator:","`
	Group     string   `env:"KAFKA_GROUP" envDefault:"evershine-catalog"`
	ClientID  string   `env:"KAFKA_CLIENT_ID" envDefault:"evershine-catalog"`

	// ProduceTimeout bounds one relay send, retries included.
	ProduceTimeout time.Duration `env:"KAFKA_PRODUCE_TIMEOUT" envDefault:"10s"`
}
