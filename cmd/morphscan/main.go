// Command morphscan inspects the morph surface of a glTF avatar model: which
// targets each mesh carries, which channels the catalog binds, what hidden
// tongue targets the heuristics recover and how each viseme would resolve.
// It can also tail a running engine's frame stream.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/bytedance/sonic"

	"github.com/normanking/lipsync/internal/gltfbridge"
	"github.com/normanking/lipsync/internal/logging"
	"github.com/normanking/lipsync/internal/registry"
	"github.com/normanking/lipsync/internal/stream"
	"github.com/normanking/lipsync/internal/viseme"
)

type Flags struct {
	Model   string
	Targets bool
	JSON    bool
	Watch   string
	Verbose bool
}

type morphInfo struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

type meshInfo struct {
	Name     string   `json:"name"`
	Vertices int      `json:"vertices"`
	Targets  int      `json:"targets"`
	Named    bool     `json:"named"`
	Names    []string `json:"names,omitempty"`
}

type channelInfo struct {
	Name   string `json:"name"`
	Meshes int    `json:"meshes"`
}

type candidateInfo struct {
	Mesh   string `json:"mesh"`
	Index  int    `json:"index"`
	Target string `json:"target"`
	Method string `json:"method"`
}

type recoveryInfo struct {
	Methods    []string        `json:"methods"`
	Channels   []string        `json:"channels"`
	Candidates []candidateInfo `json:"candidates,omitempty"`
}

type visemeInfo struct {
	Viseme    string      `json:"viseme"`
	Source    string      `json:"source"`
	Condition string      `json:"condition"`
	Morphs    []morphInfo `json:"morphs,omitempty"`
	Missing   []string    `json:"missing,omitempty"`
}

type scanReport struct {
	Model       string        `json:"model"`
	MorphMeshes int           `json:"morphMeshes"`
	Meshes      []meshInfo    `json:"meshes"`
	Channels    []channelInfo `json:"channels"`
	Recovery    recoveryInfo  `json:"recovery"`
	Visemes     []visemeInfo  `json:"visemes"`
}

func main() {
	flags := parseFlags()

	logCfg := &logging.Config{Level: logging.LevelWarn, Console: true, File: false}
	if flags.Verbose {
		logCfg.Level = logging.LevelDebug
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	if flags.Watch != "" {
		runWatch(flags.Watch, logger)
		return
	}

	if flags.Model == "" {
		fmt.Fprintln(os.Stderr, "usage: morphscan -model <file.glb> [-targets] [-json]")
		fmt.Fprintln(os.Stderr, "       morphscan -watch ws://host:port/ws")
		os.Exit(2)
	}

	model, err := gltfbridge.Load(flags.Model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load model: %v\n", err)
		os.Exit(1)
	}

	reg := registry.New(logger.Component("registry"))
	ext := registry.ExtractHidden(model, logger.Component("extractor"))
	attach := reg.Attach(model, registry.DictionaryProber{}, ext)

	resolver := viseme.NewResolver(viseme.DefaultCalibration())

	report := buildReport(model.Name, attach, reg, ext, resolver, flags.Targets)

	if flags.JSON {
		data, err := sonic.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode report: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	printReport(report)
}

func buildReport(name string, attach registry.AttachReport, reg *registry.MeshRegistry, ext *registry.Extraction, resolver *viseme.Resolver, withTargets bool) *scanReport {
	report := &scanReport{
		Model:       name,
		MorphMeshes: attach.MorphMeshes,
	}

	for _, mesh := range reg.Model().Meshes {
		info := meshInfo{
			Name:     mesh.Name,
			Vertices: mesh.VertexCount(),
			Targets:  mesh.TargetCount(),
			Named:    mesh.HasNamedTargets(),
		}
		if withTargets {
			info.Names = mesh.TargetNames()
		}
		report.Meshes = append(report.Meshes, info)
	}

	for _, ch := range reg.Channels() {
		report.Channels = append(report.Channels, channelInfo{Name: ch.Name, Meshes: ch.MeshCount()})
	}

	for _, m := range ext.Methods {
		report.Recovery.Methods = append(report.Recovery.Methods, string(m))
	}
	for name := range ext.Channels {
		report.Recovery.Channels = append(report.Recovery.Channels, name)
	}
	sort.Strings(report.Recovery.Channels)
	for _, c := range ext.Candidates {
		report.Recovery.Candidates = append(report.Recovery.Candidates, candidateInfo{
			Mesh:   c.MeshName,
			Index:  c.TargetIndex,
			Target: c.TargetName,
			Method: string(c.Method),
		})
	}

	for _, id := range viseme.All() {
		res := resolver.Resolve(id, 1, reg.Has)
		info := visemeInfo{
			Viseme:    id.String(),
			Source:    string(res.Source),
			Condition: string(res.Condition),
			Missing:   res.Missing,
		}
		for _, m := range res.Morphs {
			info.Morphs = append(info.Morphs, morphInfo{Name: m.Name, Weight: float64(m.Weight)})
		}
		report.Visemes = append(report.Visemes, info)
	}

	return report
}

func printReport(r *scanReport) {
	fmt.Printf("Model: %s (%d meshes, %d morph-capable)\n\n", r.Model, len(r.Meshes), r.MorphMeshes)

	fmt.Println("Meshes:")
	for _, m := range r.Meshes {
		named := "anonymous targets"
		if m.Named {
			named = "named targets"
		}
		if m.Targets == 0 {
			named = "no targets"
		}
		fmt.Printf("  %-28s %6d verts  %3d targets  (%s)\n", m.Name, m.Vertices, m.Targets, named)
		for _, t := range m.Names {
			fmt.Printf("      %s\n", t)
		}
	}

	fmt.Printf("\nChannels (%d):\n", len(r.Channels))
	for _, ch := range r.Channels {
		fmt.Printf("  %-28s %d mesh(es)\n", ch.Name, ch.Meshes)
	}

	fmt.Println("\nHidden-target recovery:")
	if len(r.Recovery.Methods) == 0 {
		fmt.Println("  nothing recovered, tongue visemes will use proxies")
	} else {
		fmt.Printf("  methods:  %s\n", strings.Join(r.Recovery.Methods, ", "))
		fmt.Printf("  channels: %s\n", strings.Join(r.Recovery.Channels, ", "))
		for _, c := range r.Recovery.Candidates {
			fmt.Printf("  candidate: %s target %d (%s) via %s\n", c.Mesh, c.Index, c.Target, c.Method)
		}
	}

	fmt.Println("\nViseme coverage:")
	for _, v := range r.Visemes {
		parts := make([]string, 0, len(v.Morphs))
		for _, m := range v.Morphs {
			parts = append(parts, fmt.Sprintf("%s=%.2f", m.Name, m.Weight))
		}
		line := fmt.Sprintf("  %-4s %-12s %-18s %s", v.Viseme, v.Source, v.Condition, strings.Join(parts, " "))
		if len(v.Missing) > 0 {
			line += fmt.Sprintf("  (missing %s)", strings.Join(v.Missing, ", "))
		}
		fmt.Println(line)
	}
}

func runWatch(url string, logger *logging.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	client := stream.NewClient(url, printFrame, logger.Zerolog())
	client.Connect(ctx)
	defer client.Disconnect()

	fmt.Printf("watching %s (ctrl-c to stop)\n", url)
	<-ctx.Done()
}

func printFrame(f stream.Frame) {
	parts := make([]string, 0, len(f.Morphs))
	for _, m := range f.Morphs {
		parts = append(parts, fmt.Sprintf("%s=%.2f", m.Name, m.Weight))
	}
	fmt.Printf("%9.0fms  %-4s  %s\n", f.ClockMs, f.Viseme, strings.Join(parts, " "))
}

func parseFlags() *Flags {
	flags := &Flags{}

	flag.StringVar(&flags.Model, "model", "", "glTF/GLB model path")
	flag.BoolVar(&flags.Targets, "targets", false, "list every morph target name per mesh")
	flag.BoolVar(&flags.JSON, "json", false, "emit the report as JSON")
	flag.StringVar(&flags.Watch, "watch", "", "tail a running engine's frame stream at this websocket URL")
	flag.BoolVar(&flags.Verbose, "verbose", false, "debug logging")

	flag.Parse()

	return flags
}
