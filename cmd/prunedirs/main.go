package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/benchscrape/internal/pagestore"
)

type CLI struct {
	Root   string `arg:"" optional:"" help:"Page store directory to clean." type:"existingdir" default:"paperswithcode"`
	DryRun bool   `help:"Only list the directories that would be removed." short:"n"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("prunedirs"),
		kong.Description("Remove sub-directories named like their parent from a page store."),
	)

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "prunedirs"})

	removed, err := pagestore.PruneSelfNamedDirs(cli.Root, cli.DryRun)
	for _, dir := range removed {
		if cli.DryRun {
			logger.Info("Would remove", "dir", dir)
		} else {
			logger.Info("Removed", "dir", dir)
		}
	}
	if err != nil {
		logger.Fatal("Pruning failed", "err", err)
	}
	logger.Info("Done", "count", len(removed))
}
