package main

import (
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "database-url",
		Usage:   "Workflow and schedule storage: a directory, file://dir or postgres://...",
		Value:   "file://./data",
		Sources: cli.EnvVars("DATABASE_URL"),
	}
}

func eventBusFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Value:   "localhost:9092",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
	}
}

func executionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "plugins-path",
			Usage:   "Path to the directory containing node plugins",
			Value:   "./plugins",
			Sources: cli.EnvVars("PLUGINS_PATH"),
		},
		&cli.StringFlag{
			Name:    "step-journal",
			Usage:   "Durable step journal (memory, redis://..., sqlite://path)",
			Value:   "memory",
			Sources: cli.EnvVars("STEP_JOURNAL_URL"),
		},
	}
}

func portFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "port",
		Aliases: []string{"p"},
		Usage:   "Port to run the API server on",
		Value:   defaultPort,
		Sources: cli.EnvVars("PORT"),
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export OpenTelemetry traces over OTLP/HTTP",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
	}
}

func withFlags(groups ...[]cli.Flag) []cli.Flag {
	var flags []cli.Flag

	for _, g := range groups {
		flags = append(flags, g...)
	}

	return flags
}
