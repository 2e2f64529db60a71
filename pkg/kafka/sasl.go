package kafka

import cKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"

// SASLConfig holds SASL authentication settings for Kafka clients.
// Authentication is enabled only when both username and password are set.
type SASLConfig struct {
	Username         string `env:"KAFKA_SASL_USERNAME"`
	Password         string `env:"KAFKA_SASL_PASSWORD"`
	Mechanism        string `env:"KAFKA_SASL_MECHANISM"    envDefault:"SCRAM-SHA-512"`
	SecurityProtocol string `env:"KAFKA_SECURITY_PROTOCOL" envDefault:"SASL_SSL"`
}

// Enabled reports whether SASL credentials are configured.
func (s SASLConfig) Enabled() bool {
	return s.Username != "" && s.Password != ""
}

// ApplyToConfigMap adds the SASL settings to cfg when enabled.
func (s SASLConfig) ApplyToConfigMap(cfg *cKafka.ConfigMap) {
	if !s.Enabled() {
		return
	}
	(*cfg)["security.protocol"] = s.SecurityProtocol
	(*cfg)["sasl.mechanisms"] = s.Mechanism
	(*cfg)["sasl.username"] = s.Username
	(*cfg)["sasl.password"] = s.Password
}
