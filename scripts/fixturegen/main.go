package main

import (
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/socialfeed/internal/fixtures"
)

var opts = struct {
	Output string `long:"output" env:"OUTPUT" default:"fixtures.yml" description:"path to the fixtures file, stdout if '-'"`
	Seed   int64  `long:"seed" env:"SEED" default:"1" description:"seed of generated like counts"`
	Now    string `long:"now" env:"NOW" description:"RFC3339 time of the newest post, current time if empty"`
}{}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "fixturegen"
	parser.LongDescription = "Sample fixtures generator"

	_, err := parser.Parse()

	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		logrus.WithError(err).Fatal("error occurred while parsing flags")
	}

	now := time.Now().UTC()
	if opts.Now != "" {
		if now, err = time.Parse(time.RFC3339, opts.Now); err != nil {
			logrus.WithError(err).Fatal("failed to parse now")
		}
	}

	set := fixtures.Generate(opts.Seed, now)

	out := os.Stdout
	if opts.Output != "-" {
		f, err := os.Create(opts.Output)
		if err != nil {
			logrus.WithError(err).Fatal("failed to create output")
		}
		defer f.Close() // nolint:errcheck

		out = f
	}

	if err := fixtures.Encode(out, set); err != nil {
		logrus.WithError(err).Fatal("failed to write fixtures")
	}

	logrus.Infof("%d users and %d posts written to %s", len(set.Users), len(set.Posts), opts.Output)
}
