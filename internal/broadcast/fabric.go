// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package broadcast

import (
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/watchparty/internal/config"
	"github.com/tomtom215/watchparty/internal/logging"
)

// Fabric owns the pub/sub plumbing behind the broadcaster: the watermill
// publisher and subscriber and, optionally, an embedded NATS server.
type Fabric struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber

	server *EmbeddedServer
	closer []func() error
}

// NewFabric builds the fabric selected by cfg.Mode.
//
// In local mode a single gochannel instance serves both sides and publishes
// block until the relay acked, which keeps per-room ordering intact. In NATS
// mode every instance subscribes without a queue group so each one receives
// every room event for its own websocket clients.
func NewFabric(cfg config.BrokerConfig) (*Fabric, error) {
	logger := logging.NewWatermillLogger()

	switch cfg.Mode {
	case config.BrokerModeLocal, "":
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            256,
			BlockPublishUntilSubscriberAck: true,
		}, logger)
		return &Fabric{
			Publisher:  ch,
			Subscriber: ch,
			closer:     []func() error{ch.Close},
		}, nil

	case config.BrokerModeNATS:
		return newNATSFabric(cfg, logger)

	default:
		return nil, fmt.Errorf("unknown broker mode %q", cfg.Mode)
	}
}

func newNATSFabric(cfg config.BrokerConfig, logger watermill.LoggerAdapter) (*Fabric, error) {
	f := &Fabric{}
	url := cfg.NATSURL

	if cfg.Embedded {
		srv, err := NewEmbeddedServer(ServerConfig{
			Host:      cfg.EmbeddedHost,
			Port:      cfg.EmbeddedPort,
			JetStream: cfg.JetStream,
			StoreDir:  cfg.EmbeddedStore,
		})
		if err != nil {
			return nil, err
		}
		f.server = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Bool("jetstream", cfg.JetStream).Msg("Embedded NATS server started")
	}

	natsOpts := natsOptions(cfg, logger)

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      !cfg.JetStream,
			AutoProvision: cfg.JetStream,
			TrackMsgId:    cfg.JetStream,
		},
	}, logger)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	f.Publisher = pub
	f.closer = append(f.closer, pub.Close)

	jsCfg := wmNats.JetStreamConfig{
		Disabled:      !cfg.JetStream,
		AutoProvision: cfg.JetStream,
	}
	if cfg.JetStream {
		jsCfg.SubscribeOptions = []natsgo.SubOpt{natsgo.DeliverNew()}
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     10 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        jsCfg,
	}, logger)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}
	f.Subscriber = sub
	f.closer = append(f.closer, sub.Close)

	return f, nil
}

func natsOptions(cfg config.BrokerConfig, logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name("watchparty"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
}

// Embedded returns the embedded server, or nil.
func (f *Fabric) Embedded() *EmbeddedServer {
	return f.server
}

// Close tears the fabric down in reverse order of construction.
func (f *Fabric) Close() error {
	var errs []error
	for i := len(f.closer) - 1; i >= 0; i-- {
		if err := f.closer[i](); err != nil {
			errs = append(errs, err)
		}
	}
	f.closer = nil
	if f.server != nil {
		f.server.Shutdown()
		f.server = nil
	}
	return errors.Join(errs...)
}
