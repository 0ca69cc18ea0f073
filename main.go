package main

// cvs-fast-export converts a tree of RCS ",v" master files (a CVS
// repository, checked out or bare) into a git fast-import stream on
// stdout or a named file.
//
// Design:
//   - rcsmaster.Loader walks the tree and parses every master file in
//     parallel (pond pool), producing one rcsmaster.Master per file.
//   - export.Session drives materialize.Materializer over each master,
//     clusters the resulting revisions into commits, orders them, and
//     writes the resulting commits/blobs/tags through go-libgitfastimport.
//   - authormap.Map optionally resolves CVS usernames into full git
//     identities (name, email, timezone) before writing.
//
// Notes:
//   - Like the git fast-import format itself, the emitted stream is
//     meant to be piped into `git fast-import`, not applied directly.
import (
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/TimothyEBaldwin/RO-cvs-fast-export/authormap"
	"github.com/TimothyEBaldwin/RO-cvs-fast-export/export"
	"github.com/TimothyEBaldwin/RO-cvs-fast-export/internal/config"
	"github.com/TimothyEBaldwin/RO-cvs-fast-export/materialize"
	"github.com/TimothyEBaldwin/RO-cvs-fast-export/rcsmaster"
)

func main() {
	var (
		configFile = kingpin.Flag(
			"config",
			"YAML run configuration file.",
		).Default("cvs-fast-export.yaml").Short('c').String()
		cvsRoot = kingpin.Arg(
			"cvsroot",
			"Root directory of the CVS/RCS tree to convert.",
		).Required().String()
		outputFile = kingpin.Flag(
			"output",
			"File to write the fast-import stream to (default stdout).",
		).Short('o').String()
		strip = kingpin.Flag(
			"strip",
			"Number of leading bytes to strip from every master's path (overrides config).",
		).Short('s').Int()
		fromTime = kingpin.Flag(
			"from-time",
			"RFC3339 cutoff: commits at or before this time are not re-emitted (overrides config).",
		).String()
		forceDates = kingpin.Flag(
			"force-dates",
			"Fabricate monotonic commit dates instead of using recorded ones (overrides config).",
		).Bool()
		branchOrder = kingpin.Flag(
			"branch-order",
			"Emit commits branch-by-branch instead of in global date order (overrides config).",
		).Bool()
		reposurgeon = kingpin.Flag(
			"reposurgeon",
			"Emit a cvs-revision property per commit for reposurgeon-style round-tripping (overrides config).",
		).Bool()
		revisionMap = kingpin.Flag(
			"revision-map",
			"File to write a CVS-revision-to-mark map to (overrides config).",
		).String()
		commitWindow = kingpin.Flag(
			"commit-time-window",
			"Max gap between two revisions sharing an author and log message for them to fuse into one commit (overrides config).",
		).Duration()
		branchPrefix = kingpin.Flag(
			"branch-prefix",
			"Ref prefix under which branches are created (overrides config).",
		).String()
		authorMapPath = kingpin.Flag(
			"authormap",
			"YAML file mapping CVS usernames to git identities (overrides config).",
		).String()
		workers = kingpin.Flag(
			"workers",
			"Parallel master-file loaders (0 means runtime.NumCPU(), overrides config).",
		).Short('j').Int()
		cpuProfile = kingpin.Flag(
			"cpuprofile",
			"Write a pprof CPU profile to this file.",
		).String()
		debug = kingpin.Flag(
			"debug",
			"Enable debug-level logging.",
		).Bool()
	)
	kingpin.UsageTemplate(kingpin.CompactUsageTemplate).Author("cvs-fast-export contributors")
	kingpin.CommandLine.Help = "Converts a CVS/RCS master-file tree into a git fast-import stream\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug {
		logger.Level = logrus.DebugLevel
	}

	if *cpuProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*cpuProfile), profile.NoShutdownHook).Stop()
	}

	cfg, err := loadConfig(*configFile, logger)
	if err != nil {
		logger.Fatalf("error loading config: %v", err)
	}
	applyFlagOverrides(cfg, overrideFlags{
		strip:        strip,
		fromTime:     fromTime,
		forceDates:   *forceDates,
		branchOrder:  *branchOrder,
		reposurgeon:  *reposurgeon,
		revisionMap:  *revisionMap,
		commitWindow: *commitWindow,
		branchPrefix: *branchPrefix,
		authorMap:    *authorMapPath,
		workers:      workers,
	})

	opts, err := sessionOptions(cfg)
	if err != nil {
		logger.Fatalf("error building session options: %v", err)
	}
	if cfg.AuthorMap != "" {
		am, err := authormap.Load(cfg.AuthorMap)
		if err != nil {
			logger.Fatalf("error loading authormap: %v", err)
		}
		opts.ResolveAuthor = am.Resolve
	}

	start := time.Now()
	logger.Infof("cvs-fast-export starting, cvsroot: %s", *cvsRoot)
	logger.Infof("OS: %s/%s", runtime.GOOS, runtime.GOARCH)

	loader := &rcsmaster.Loader{Logger: logger, Workers: cfg.Workers}
	masters, err := loader.LoadTree(*cvsRoot)
	if err != nil {
		logger.Fatalf("error loading tree: %v", err)
	}
	logger.Infof("parsed %d master file(s) in %s", len(masters), time.Since(start))

	out := os.Stdout
	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			logger.Fatalf("error creating %s: %v", *outputFile, err)
		}
		defer f.Close()
		out = f
	}

	session, err := export.NewSession(opts, logger)
	if err != nil {
		logger.Fatalf("error starting export session: %v", err)
	}
	defer session.Close()

	mz := materialize.New(logger)
	if err := session.Run(masters, mz, out); err != nil {
		logger.Fatalf("error exporting: %v", err)
	}
	logger.Infof("export finished in %s", time.Since(start))
}

func loadConfig(path string, logger *logrus.Logger) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Debugf("no config file at %s, using defaults", path)
		return config.Unmarshal(nil)
	}
	return config.LoadFile(path)
}

type overrideFlags struct {
	strip        *int
	fromTime     *string
	forceDates   bool
	branchOrder  bool
	reposurgeon  bool
	revisionMap  string
	commitWindow time.Duration
	branchPrefix string
	authorMap    string
	workers      *int
}

// applyFlagOverrides layers CLI flags over a loaded config, mirroring
// the teacher's "only override non-default values" pattern.
func applyFlagOverrides(cfg *config.Config, f overrideFlags) {
	if f.strip != nil && *f.strip != 0 {
		cfg.Strip = *f.strip
	}
	if f.fromTime != nil && *f.fromTime != "" {
		cfg.FromTime = *f.fromTime
	}
	if f.forceDates {
		cfg.ForceDates = true
	}
	if f.branchOrder {
		cfg.BranchOrder = true
	}
	if f.reposurgeon {
		cfg.Reposurgeon = true
	}
	if f.revisionMap != "" {
		cfg.RevisionMap = f.revisionMap
	}
	if f.commitWindow != 0 {
		cfg.CommitTimeWindow = f.commitWindow
	}
	if f.branchPrefix != "" {
		cfg.BranchPrefix = f.branchPrefix
	}
	if f.authorMap != "" {
		cfg.AuthorMap = f.authorMap
	}
	if f.workers != nil && *f.workers != 0 {
		cfg.Workers = *f.workers
	}
}

func sessionOptions(cfg *config.Config) (export.Options, error) {
	fromTime, err := cfg.FromTimeValue()
	if err != nil {
		return export.Options{}, err
	}
	return export.Options{
		Strip:            cfg.Strip,
		FromTime:         fromTime,
		ForceDates:       cfg.ForceDates,
		BranchOrder:      cfg.BranchOrder,
		Reposurgeon:      cfg.Reposurgeon,
		RevisionMapPath:  cfg.RevisionMap,
		CommitTimeWindow: cfg.CommitTimeWindow,
		BranchPrefix:     cfg.BranchPrefix,
	}, nil
}
