// cvsgraph is a diagnostic companion to cvs-fast-export: it reads a
// fast-import stream (normally produced by this module's own export
// orchestrator) and writes a Graphviz DOT file showing the commit and
// branch structure, so a conversion's branch topology can be eyeballed
// without importing it into a real git repository first.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emicklei/dot"
	libfastimport "github.com/rcowham/go-libgitfastimport"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

type graphOptions struct {
	streamFile  string
	graphFile   string
	firstCommit int
	lastCommit  int
	maxCommits  int
	squash      bool
}

// commitNode is one parsed commit, kept just long enough to resolve
// its branch and draw its edges.
type commitNode struct {
	commit       *libfastimport.CmdCommit
	branch       string
	parentBranch string
	label        string
	childCount   int
	mergeCount   int
	gNode        dot.Node
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

func newCommitNode(commit *libfastimport.CmdCommit) *commitNode {
	cn := &commitNode{commit: commit}
	cn.branch = strings.Replace(commit.Ref, "refs/heads/", "", 1)
	if hasPrefix(cn.branch, "refs/tags") || hasPrefix(cn.branch, "refs/remote") {
		cn.branch = ""
	}
	cn.label = fmt.Sprintf("Commit: %d %s", cn.commit.Mark, cn.branch)
	return cn
}

// streamGraph walks a fast-import stream exactly once, building one
// commitNode per CmdCommit, then emits a DOT graph of the branch
// structure it found.
type streamGraph struct {
	logger  *logrus.Logger
	opts    graphOptions
	commits map[int]*commitNode
	graph   *dot.Graph
}

func newStreamGraph(logger *logrus.Logger, opts graphOptions) *streamGraph {
	return &streamGraph{logger: logger, opts: opts, commits: map[int]*commitNode{}}
}

func (g *streamGraph) parse() error {
	file, err := os.Open(g.opts.streamFile)
	if err != nil {
		return fmt.Errorf("cvsgraph: opening %s: %w", g.opts.streamFile, err)
	}
	defer file.Close()

	f := libfastimport.NewFrontend(bufio.NewReader(file), nil, nil)
	lastBranchCommit := map[string]int{}
	branchSkipCount := map[string]int{}

parseLoop:
	for {
		cmd, err := f.ReadCmd()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("cvsgraph: reading stream: %w", err)
		}
		commit, ok := cmd.(libfastimport.CmdCommit)
		if !ok {
			continue
		}
		cn := newCommitNode(&commit)
		g.commits[commit.Mark] = cn
		if cn.commit.From != "" {
			if parentMark, err := strconv.Atoi(strings.TrimPrefix(cn.commit.From, ":")); err == nil {
				if parent, ok := g.commits[parentMark]; ok {
					parent.childCount++
					if cn.branch == "" {
						cn.branch = parent.branch
					}
					cn.parentBranch = parent.branch
				}
			}
		} else if cn.branch == "" {
			cn.branch = "master"
		}
		for _, merge := range cn.commit.Merge {
			if mergeMark, err := strconv.Atoi(strings.TrimPrefix(merge, ":")); err == nil {
				if mergeFrom, ok := g.commits[mergeMark]; ok {
					mergeFrom.mergeCount++
				}
			}
		}
		if g.opts.maxCommits != 0 && len(g.commits) > g.opts.maxCommits {
			break parseLoop
		}
	}

	keys := make([]int, 0, len(g.commits))
	for k := range g.commits {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	for _, k := range keys {
		cn := g.commits[k]
		inRange := (g.opts.firstCommit == 0 || cn.commit.Mark >= g.opts.firstCommit) &&
			(g.opts.lastCommit == 0 || cn.commit.Mark <= g.opts.lastCommit)
		if !inRange {
			continue
		}
		worthDrawing := !g.opts.squash ||
			cn.branch != cn.parentBranch ||
			len(cn.commit.Merge) > 0 ||
			cn.mergeCount != 0 ||
			cn.childCount > 1 ||
			cn.commit.Mark == g.opts.firstCommit ||
			cn.commit.Mark == g.opts.lastCommit
		if !worthDrawing {
			branchSkipCount[cn.branch]++
			continue
		}
		if parentMark, ok := lastBranchCommit[cn.branch]; ok {
			cn.commit.From = fmt.Sprintf(":%d", parentMark)
		}
		cn.gNode = g.graph.Node(cn.label)
		g.drawEdges(cn, branchSkipCount[cn.branch])
		lastBranchCommit[cn.branch] = cn.commit.Mark
		branchSkipCount[cn.branch] = 0
	}
	return nil
}

func (g *streamGraph) drawEdges(cn *commitNode, skipCount int) {
	if cn.commit.From != "" {
		if parentMark, err := strconv.Atoi(strings.TrimPrefix(cn.commit.From, ":")); err == nil {
			if parent, ok := g.commits[parentMark]; ok {
				parent.gNode = g.graph.Node(parent.label)
				label := "p"
				if skipCount > 0 {
					label = fmt.Sprintf("p%d", skipCount)
				}
				g.graph.Edge(parent.gNode, cn.gNode, label)
			}
		}
	}
	for _, merge := range cn.commit.Merge {
		if mergeMark, err := strconv.Atoi(strings.TrimPrefix(merge, ":")); err == nil {
			if mergeFrom, ok := g.commits[mergeMark]; ok {
				mergeFrom.gNode = g.graph.Node(mergeFrom.label)
				g.graph.Edge(mergeFrom.gNode, cn.gNode, "m")
			}
		}
	}
}

func main() {
	var (
		streamFile = kingpin.Arg(
			"stream",
			"Fast-import stream file to read (output of the main exporter).",
		).Required().String()
		outputGraph = kingpin.Flag(
			"output",
			"Graphviz DOT file to write.",
		).Short('o').Default("cvsgraph.dot").String()
		maxCommits = kingpin.Flag(
			"max.commits",
			"Max number of commits to read (0 means all).",
		).Short('m').Int()
		firstCommit = kingpin.Flag(
			"first.commit",
			"Mark of the first commit to include (0 means all).",
		).Short('f').Int()
		lastCommit = kingpin.Flag(
			"last.commit",
			"Mark of the last commit to include (0 means all).",
		).Short('l').Int()
		squash = kingpin.Flag(
			"squash",
			"Squash linear runs, keeping only branch points and merges.",
		).Short('s').Bool()
		debug = kingpin.Flag(
			"debug",
			"Enable debug-level logging.",
		).Bool()
	)
	kingpin.CommandLine.Help = "Renders a fast-import stream's commit/branch structure as a Graphviz DOT file\n"
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	logger := logrus.New()
	logger.Level = logrus.InfoLevel
	if *debug {
		logger.Level = logrus.DebugLevel
	}

	start := time.Now()
	logger.Infof("cvsgraph starting, stream: %s", *streamFile)
	logger.Infof("OS: %s/%s", runtime.GOOS, runtime.GOARCH)

	g := newStreamGraph(logger, graphOptions{
		streamFile:  *streamFile,
		graphFile:   *outputGraph,
		maxCommits:  *maxCommits,
		firstCommit: *firstCommit,
		lastCommit:  *lastCommit,
		squash:      *squash,
	})
	g.graph = dot.NewGraph(dot.Directed)
	if err := g.parse(); err != nil {
		logger.Fatal(err)
	}

	f, err := os.OpenFile(g.opts.graphFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		logger.Fatal(err)
	}
	defer f.Close()
	if _, err := f.Write([]byte(g.graph.String())); err != nil {
		logger.Fatal(err)
	}
	logger.Infof("wrote %s in %s", g.opts.graphFile, time.Since(start))
}
