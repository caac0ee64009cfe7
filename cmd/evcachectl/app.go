package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/evcache/codec"
	redisbus "github.com/unkn0wn-root/evcache/eventbus/redis"
	"github.com/unkn0wn-root/evcache/service"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "evcachectl",
		Usage: "evcache operations",
		Commands: []*cli.Command{
			configCommand(),
			publishCommand(),
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:      "config",
		Usage:     "validate a service config and print the effective values",
		UsageText: "evcachectl config FILE",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("config: expected exactly one FILE")
			}
			return printConfig(cmd.Root().Writer, cmd.Args().First())
		},
	}
}

func printConfig(w io.Writer, path string) error {
	cfg, err := service.LoadConfig(path)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "publish an invalidation event",
		UsageText: "evcachectl publish [options] EVENT",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "redis address",
				Value:   "127.0.0.1:6379",
				Sources: cli.NewValueSourceChain(cli.EnvVar("EVCACHE_REDIS_ADDR")),
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "channel prefix shared with the subscribers",
				Value: redisbus.DefaultPrefix,
			},
			&cli.StringFlag{
				Name:  "codec",
				Usage: "payload codec: msgpack, cbor, json or protobuf",
				Value: "msgpack",
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "event payload as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("publish: expected exactly one EVENT")
			}
			data, err := parseData(cmd.String("data"))
			if err != nil {
				return err
			}
			c, err := codec.ByName(cmd.String("codec"))
			if err != nil {
				return err
			}

			rdb := redis.NewClient(&redis.Options{Addr: cmd.String("redis-addr")})
			defer rdb.Close()
			bus, err := redisbus.New(redisbus.Config{Client: rdb, Prefix: cmd.String("prefix"), Codec: c})
			if err != nil {
				return err
			}
			name := cmd.Args().First()
			if err := bus.Publish(ctx, name, data); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.Root().Writer, "published %s\n", name)
			return err
		},
	}
}

// parseData turns the --data flag into a dynamic value; "" means no payload.
func parseData(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	v, err := (codec.JSON[any]{}).Decode([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("--data: %w", err)
	}
	return v, nil
}
