// Command meshcut-bench runs a single dispatch against a small built-in
// mesh pair and reports the resulting connected-component inventory,
// modeled on the teacher's cmd/gen harness (flag-driven, logs to stderr,
// no external input files).
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"log"

	"github.com/cutgraph/meshcut"
	"gonum.org/v1/gonum/spatial/r3"
)

func main() {
	enforceGP := flag.Bool("enforce-gp", true, "set ENFORCE_GENERAL_POSITION")
	includeMaps := flag.Bool("include-maps", false, "include vertex/face maps on every CC")
	flag.Parse()

	src := meshcut.RawMesh{
		Vertices: []r3.Vec{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 0, Y: 1, Z: 0},
		},
		Faces: []uint32{0, 1, 2},
	}
	cut := meshcut.RawMesh{
		Vertices: []r3.Vec{
			{X: 0.2, Y: 0.2, Z: -1},
			{X: 0.2, Y: 0.2, Z: 1},
			{X: 0.6, Y: 0.2, Z: 0},
		},
		Faces: []uint32{0, 1, 2},
	}

	var flags meshcut.Flags = meshcut.FilterFragmentLocationBelow | meshcut.FilterFragmentSealingInside
	if *enforceGP {
		flags |= meshcut.EnforceGeneralPosition
	}
	if *includeMaps {
		flags |= meshcut.IncludeVertexMap | meshcut.IncludeFaceMap
	}

	ctx := meshcut.NewContext()
	ctx.SetDebugCallback(func(sev meshcut.DebugSeverity, msg string) {
		log.Printf("[%d] %s", sev, msg)
	})

	handles, err := ctx.Dispatch(context.Background(), src, cut, flags)
	if err != nil {
		log.Fatalf("dispatch failed: %v", err)
	}

	log.Printf("dispatch produced %d connected component(s)", len(handles))
	for _, h := range handles {
		typeBuf := make([]byte, 4)
		if _, err := ctx.GetConnectedComponentData(h, meshcut.Type, typeBuf); err != nil {
			log.Printf("handle %v: type query failed: %v", h, err)
			continue
		}
		need, _ := ctx.GetConnectedComponentData(h, meshcut.VertexDouble, nil)
		log.Printf("handle %v: type=%d vertex-bytes=%d", h, binary.LittleEndian.Uint32(typeBuf), need)
	}
}
