package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"crm/pkg/mq"
)

type Config struct {
	MetadataDB    Postgres          `json:"metadata_db"`
	Provider      Provider          `json:"provider"`
	EventProducer mq.ProducerConfig `json:"event_producer"`
	EventConsumer mq.ConsumerConfig `json:"event_consumer"`
	SenderName    string            `json:"sender_name"`
	SenderEmail   string            `json:"sender_email"`
	ReplyToEmail  string            `json:"reply_to_email"`
	// TestEmails, when non-empty, restricts dispatch to the listed
	// addresses. Meant for staging environments.
	TestEmails []string `json:"test_emails"`
}

type Postgres struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

func (pg *Postgres) ToDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pg.Host, pg.Port, pg.Username, pg.Password, pg.Database, pg.SSLMode)
}

// Provider holds the email service provider endpoints.
// SendURL accepts transactional sends, EventsURL serves the
// per-message events feed and SummaryLogURL the legacy delivery log.
type Provider struct {
	APIKey         string `json:"api_key"`
	SendURL        string `json:"send_url"`
	EventsURL      string `json:"events_url"`
	SummaryLogURL  string `json:"summary_log_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	MaxRetries     uint64 `json:"max_retries"`
}

func NewConfig() *Config {
	return &Config{
		MetadataDB: Postgres{
			Username: "",
			Password: "",
			Host:     "127.0.0.1",
			Port:     5432,
			Database: "crm_db",
			SSLMode:  "disable",
		},
		Provider: Provider{
			APIKey:         "",
			SendURL:        "https://api.mailprovider.com/v3/smtp/email",
			EventsURL:      "https://api.mailprovider.com/v3/smtp/statistics/events",
			SummaryLogURL:  "https://api.mailprovider.com/v2/emails",
			TimeoutSeconds: 15,
			MaxRetries:     3,
		},
		EventProducer: mq.ProducerConfig{
			Brokers: []string{"127.0.0.1:9092"},
			Topics: map[uint32]string{
				uint32(mq.PayloadEngagementEvent): "engagement_events",
			},
		},
		EventConsumer: mq.ConsumerConfig{
			Brokers:         []string{"127.0.0.1:9092"},
			Topic:           "engagement_events",
			ConsumerGroup:   "crm_counter_refresh",
			BalanceStrategy: "roundrobin",
			InitialOffset:   "newest",
		},
		SenderName:   "",
		SenderEmail:  "",
		ReplyToEmail: "",
		TestEmails:   []string{},
	}
}

func (c *Config) Load(ctx context.Context, path string) error {
	if path == "" {
		log.Ctx(ctx).Warn().Msgf("empty config file")
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Ctx(ctx).Warn().Msgf("config file does not exist, file path: %s", path)
			return nil
		}
		return err
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
			log.Ctx(ctx).Error().Msgf("config file close failed, file path: %s", path)
		}
	}(f)

	p := json.NewDecoder(f)
	if err := p.Decode(&c); err != nil {
		return err
	}

	return nil
}
