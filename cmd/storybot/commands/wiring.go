package commands

import (
	"context"
	"fmt"
	"log"

	"storybot/common"
	"storybot/config"
	"storybot/feed"
	"storybot/filter"
	"storybot/handoff"
	"storybot/ledger"
	"storybot/selection"

	"github.com/joho/godotenv"
)

// app is everything a command needs to run selections
type app struct {
	settings    config.Settings
	constraints config.ConstraintSet
	ctrl        *selection.Controller
	closers     []func() error
}

func (a *app) loadConstraints() (config.ConstraintSet, error) {
	return config.LoadConstraints(a.settings.ConstraintsPath)
}

// Close releases the publishers opened by newApp
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Printf("⚠️  Close error: %v", err)
		}
	}
}

// loadSettings reads .env, the environment and the --config flag
func loadSettings() (config.Settings, error) {
	_ = godotenv.Load()

	settings, err := config.LoadSettings()
	if err != nil {
		return config.Settings{}, err
	}
	if constraintsPath != "" {
		settings.ConstraintsPath = constraintsPath
	}
	return settings, nil
}

// newApp builds the feed, publishers and controller from the environment
func newApp(ctx context.Context) (*app, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	a := &app{settings: settings}

	a.constraints, err = a.loadConstraints()
	if err != nil {
		return nil, err
	}

	redactor, err := filter.LoadRedactor(a.constraints.SwearWordsPath)
	if err != nil {
		return nil, err
	}

	publisher, err := a.newPublisher(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.ctrl = selection.NewController(selection.Config{
		Source: feed.NewSource(newFeed(settings)),
		OpenLedger: func(ctx context.Context) (*ledger.Ledger, error) {
			return ledger.OpenFromSettings(ctx, settings)
		},
		Publisher: publisher,
		Redactor:  redactor,
	})
	return a, nil
}

func newFeed(s config.Settings) feed.Feed {
	if s.FeedKind == "rss" {
		log.Printf("📰 Using RSS feed at %s", s.RedditBaseURL)
		return feed.NewRSSFeed(s.RedditBaseURL, s.UserAgent, s.ExtractFull)
	}
	log.Printf("📰 Using Reddit JSON API at %s", s.RedditBaseURL)
	return feed.NewRedditClient(s.RedditBaseURL, s.UserAgent)
}

// newPublisher always logs selections and adds Kafka and S3 when configured
func (a *app) newPublisher(ctx context.Context) (handoff.Publisher, error) {
	s := a.settings
	pubs := handoff.Multi{handoff.Log{}}

	if len(s.KafkaBrokers) > 0 {
		kp, err := handoff.NewKafkaPublisher(handoff.KafkaConfig{
			Brokers: s.KafkaBrokers,
			Topic:   s.SelectionTopic,
		})
		if err != nil {
			return nil, fmt.Errorf("kafka publisher: %w", err)
		}
		a.closers = append(a.closers, kp.Close)
		pubs = append(pubs, kp)
		log.Printf("📡 Publishing selections to Kafka topic %s", s.SelectionTopic)
	}

	if s.S3Bucket != "" {
		store, err := common.NewS3(ctx, common.S3Config{
			Bucket:       s.S3Bucket,
			Prefix:       s.S3Prefix,
			Region:       s.S3Region,
			Profile:      s.S3Profile,
			UsePathStyle: s.S3UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 archive: %w", err)
		}
		pubs = append(pubs, handoff.NewS3Archive(store))
		log.Printf("🪣 Archiving selections to s3://%s/%s", s.S3Bucket, s.S3Prefix)
	} else {
		log.Println("⚠️  S3 not configured (S3_BUCKET not set), archive disabled")
	}

	return pubs, nil
}
