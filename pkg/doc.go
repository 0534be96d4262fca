// Package pkg provides the core libraries for Passforge graph transformation
// pipelines.
//
// # Overview
//
// Passforge runs ordered transformation passes over a graph until nothing
// changes, then checks the result. The pkg directory is organized into these
// areas:
//
//  1. [passes] - Pass manager, constraint ordering and pass wrappers
//  2. [fx] - The graph the passes transform, its interpreter and JSON format
//  3. [trace] - Lifecycle callback registries fired by the interpreter
//  4. [pipeline] - Declarative configs, the pass catalog and the cached runner
//  5. [cache] - Result caches (file, redis, null)
//  6. [render/nodelink] - DOT and SVG diagrams of constraints and graphs
//
// # Architecture
//
// The typical data flow through Passforge:
//
//	Pipeline config (TOML, YAML, HCL, JSON)
//	         ↓
//	    [pipeline] package (validate config, build passes and checks)
//	         ↓
//	    [passes] package (resolve order, run steps, run checks)
//	         ↓
//	    [fx] package (transformed graph)
//
// # Quick Start
//
//	cfg, _ := pipeline.LoadConfigFile("pipeline.toml")
//	g, _ := fx.ImportJSON("model.json")
//	runner := pipeline.NewRunner(nil, nil, logger)
//	result, _ := runner.Execute(ctx, cfg, g)
//	fx.ExportJSON(result.Graph, "model.opt.json")
package pkg
