// subdivtool is a CLI utility for inspecting and evaluating subdivision
// meshes.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/Faultbox/subdiv/internal/config"
	"github.com/Faultbox/subdiv/internal/logger"
	"github.com/Faultbox/subdiv/internal/subdiv"
	"github.com/Faultbox/subdiv/pkg/formats"
	gomath "github.com/Faultbox/subdiv/pkg/math"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "help", "-h", "--help":
		printUsage()
		return
	case "convert":
		cmdConvert(args)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	opts := logger.Options{Level: cfg.Logging.Level, JSON: cfg.Logging.JSON, Console: true}
	if cfg.Logging.LogFile != "" {
		opts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithOptions(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	e := newEnv(cfg)
	defer e.Close()

	switch command {
	case "info":
		cmdInfo(e, args)
	case "validate", "check":
		cmdValidate(e, args)
	case "eval":
		cmdEval(e, args)
	case "watch":
		cmdWatch(e, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`subdivtool - subdivision mesh utility

Usage:
  subdivtool [flags] <command> [options]

Commands:
  info <mesh>                     Show mesh structure and validity
  validate <mesh>                 Build the mesh, exit 1 on errors
  eval [-t step] [-d] <mesh> <face> <u> <v>
                                  Evaluate the limit surface
  convert <in> <out>              Convert between .yaml and .sdm
  watch <mesh>                    Rebuild whenever the file changes

Flags:
  -config <file>     Config file (.yaml or .toml)
  -debug             Debug logging
  -boundary <mode>   none, edge_only or edge_and_corner
  -rate <r>          Tessellation rate for meshes without levels
  -workers <n>       Build worker count
  -metrics <addr>    Serve /metrics (watch only)

Examples:
  subdivtool info cube.yaml
  subdivtool -boundary none validate cube.sdm
  subdivtool eval -d cube.yaml 0 0.5 0.5
  subdivtool -metrics :9090 watch cube.yaml`)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func load(e *env, path string) (*formats.MeshData, *subdiv.Mesh) {
	data, err := formats.LoadMesh(path)
	if err != nil {
		fatalf("Error: %v", err)
	}
	m, err := e.openMesh(data)
	if err != nil {
		logger.Error("mesh build failed", zap.String("path", path), zap.Error(err))
		fatalf("Error: %v", err)
	}
	return data, m
}

func cmdInfo(e *env, args []string) {
	if len(args) < 1 {
		fatalf("Usage: subdivtool info <mesh>")
	}

	data, m := load(e, args[0])
	s := m.Structure()

	fmt.Printf("Mesh:       %s\n", args[0])
	fmt.Printf("Faces:      %d\n", s.NumFaces())
	fmt.Printf("Half-edges: %d\n", s.NumHalfEdges())
	fmt.Printf("Vertices:   %d\n", s.NumVertices())
	fmt.Printf("Time steps: %d\n", s.NumTimeSteps())
	fmt.Printf("Boundary:   %s\n", s.Boundary())
	fmt.Printf("Creases:    %d edge, %d vertex\n", s.EdgeCreases().Len(), s.VertexCreases().Len())
	fmt.Printf("Holes:      %d\n", s.Holes().Len())

	bounds := gomath.EmptyBounds()
	for f := 0; f < s.NumFaces(); f++ {
		if b, err := m.Bounds(f, 0); err == nil {
			bounds = bounds.Union(b)
		}
	}
	if !bounds.IsEmpty() {
		fmt.Printf("Bounds:     %v - %v\n", bounds.Min, bounds.Max)
		fmt.Printf("Center:     %v\n", bounds.Center())
		fmt.Printf("Size:       %v\n", bounds.Size())
	}

	fmt.Println()
	fmt.Println("Faces by degree:")
	degrees := make(map[int]int)
	for f := 0; f < s.NumFaces(); f++ {
		degrees[s.FaceDegree(f)]++
	}
	var keys []int
	for d := range degrees {
		keys = append(keys, d)
	}
	sort.Ints(keys)
	for _, d := range keys {
		fmt.Printf("  %-4d %d\n", d, degrees[d])
	}

	fmt.Println()
	fmt.Println("Valid faces:")
	for t := 0; t < s.NumTimeSteps(); t++ {
		fmt.Printf("  t=%-3d %d/%d\n", t, s.CountValid(t), s.NumFaces())
	}

	if nm := m.NonManifoldEdges(); len(nm) > 0 {
		fmt.Println()
		fmt.Printf("Non-manifold edges: %d\n", len(nm))
		for i, k := range nm {
			if i == 10 {
				fmt.Printf("  ... %d more\n", len(nm)-i)
				break
			}
			lo, hi := k.Endpoints()
			fmt.Printf("  %d-%d\n", lo, hi)
		}
	}

	logger.Debug("info done", zap.Int("time_steps_in_file", data.NumTimeSteps()))
}

func cmdValidate(e *env, args []string) {
	if len(args) < 1 {
		fatalf("Usage: subdivtool validate <mesh>")
	}

	_, m := load(e, args[0])
	if nm := m.NonManifoldEdges(); len(nm) > 0 {
		fmt.Printf("%s: OK (%d non-manifold edges)\n", args[0], len(nm))
		return
	}
	fmt.Printf("%s: OK\n", args[0])
}

func cmdEval(e *env, args []string) {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	step := fs.Int("t", 0, "Time step")
	derivs := fs.Bool("d", false, "Print derivatives")
	fs.Parse(args)

	if fs.NArg() < 4 {
		fatalf("Usage: subdivtool eval [-t step] [-d] <mesh> <face> <u> <v>")
	}

	face, err := strconv.ParseUint(fs.Arg(1), 10, 32)
	if err != nil {
		fatalf("Invalid face: %v", err)
	}
	u, err := strconv.ParseFloat(fs.Arg(2), 32)
	if err != nil {
		fatalf("Invalid u: %v", err)
	}
	v, err := strconv.ParseFloat(fs.Arg(3), 32)
	if err != nil {
		fatalf("Invalid v: %v", err)
	}

	_, m := load(e, fs.Arg(0))

	out := subdiv.Output{P: make([]float32, 3), NumFloats: 3}
	if *derivs {
		out.DPdu = make([]float32, 3)
		out.DPdv = make([]float32, 3)
		out.DDPdudu = make([]float32, 3)
		out.DDPdvdv = make([]float32, 3)
		out.DDPdudv = make([]float32, 3)
	}

	q := subdiv.Query{Prim: uint32(face), U: float32(u), V: float32(v), Buffer: subdiv.BufferVertex, TimeStep: *step}
	if err := m.Interpolate(q, out); err != nil {
		fatalf("Error: %v", err)
	}

	fmt.Printf("P       %v\n", out.P)
	if *derivs {
		fmt.Printf("dP/du   %v\n", out.DPdu)
		fmt.Printf("dP/dv   %v\n", out.DPdv)
		fmt.Printf("d2P/du2 %v\n", out.DDPdudu)
		fmt.Printf("d2P/dv2 %v\n", out.DDPdvdv)
		fmt.Printf("d2P/dudv %v\n", out.DDPdudv)
		du, dv := gomath.Vec3FromSlice(out.DPdu), gomath.Vec3FromSlice(out.DPdv)
		fmt.Printf("N       %v\n", du.Cross(dv).Normalize())
	}
	if !m.ValidAt(int(face), *step) {
		fmt.Println("(face is not valid at this time step)")
	}
}

func cmdConvert(args []string) {
	if len(args) < 2 {
		fatalf("Usage: subdivtool convert <in> <out>")
	}

	data, err := formats.LoadMesh(args[0])
	if err != nil {
		fatalf("Error: %v", err)
	}
	if err := formats.SaveMesh(args[1], data); err != nil {
		fatalf("Error: %v", err)
	}
	fmt.Printf("Converted %s -> %s (%d faces, %d vertices)\n", args[0], args[1], len(data.FaceVertices), data.NumVertices())
}
