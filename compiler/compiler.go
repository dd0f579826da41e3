// Package compiler runs the map compilation pipeline: load the map, build
// sheets, resolve and assemble entities, serialize the scene and write the
// bundle.
package compiler

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/milk9111/tilebake/atlas"
	"github.com/milk9111/tilebake/classify"
	"github.com/milk9111/tilebake/config"
	"github.com/milk9111/tilebake/levels"
	"github.com/milk9111/tilebake/output"
	"github.com/milk9111/tilebake/scene"
	"github.com/sirupsen/logrus"
)

// Result is everything a compilation produced, before anything is written.
type Result struct {
	Map      *levels.Map
	Sheets   []*atlas.Sheet
	Assembly *Assembly
	Scene    []byte
	Bundle   *output.Bundle
}

// NewClassifier picks the tengo script when one is configured and the YAML
// rules otherwise.
func NewClassifier(cfg config.Config) (classify.Classifier, error) {
	if cfg.Script != "" {
		return classify.LoadScript(cfg.Script)
	}
	return classify.LoadRules(cfg.Rules)
}

// Compile runs the whole pipeline in memory. A nil classifier selects one
// from cfg.
func Compile(mapPath string, cfg config.Config, c classify.Classifier, log logrus.FieldLogger) (*Result, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	format, err := scene.ParseFormat(cfg.SceneFormat)
	if err != nil {
		return nil, err
	}
	if c == nil {
		if c, err = NewClassifier(cfg); err != nil {
			return nil, err
		}
	}

	m, err := levels.LoadMap(mapPath)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"map":      mapPath,
		"size":     fmt.Sprintf("%dx%d", m.Width, m.Height),
		"tilesets": len(m.Tilesets),
		"layers":   len(m.Layers),
		"groups":   len(m.ObjectGroups),
	}).Debug("compiler: map loaded")

	cache, err := atlas.NewImageCache(cfg.CacheBytes)
	if err != nil {
		return nil, err
	}
	defer cache.Close()

	sheets, err := atlas.LoadSheets(m, atlas.Options{
		Padding:     cfg.Padding,
		MaxSize:     cfg.MaxAtlasSize,
		SheetName:   cfg.SheetName,
		TextureName: cfg.TextureName,
		Prefix:      cfg.Prefix,
		Cache:       cache,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	table, err := scene.GidTableFor(m, func(i int) int { return sheets[i].Count() })
	if err != nil {
		return nil, err
	}
	if debugEnabled(log) {
		log.Debugf("compiler: gid table\n%s", spew.Sdump(table))
	}

	asm := &Assembler{
		Map:            m,
		Sheets:         sheets,
		Table:          table,
		Classifier:     c,
		MergeColliders: cfg.MergeColliders,
		Log:            log,
	}
	assembly, err := asm.Assemble()
	if err != nil {
		return nil, err
	}

	data, err := scene.Serialize(assembly.Prefab, format)
	if err != nil {
		return nil, err
	}
	bundle, err := output.Build(sheets, assembly.Used, cfg.SceneName+"."+format.Ext(), data)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"tiles":   assembly.Tiles,
		"objects": assembly.Objects,
		"merged":  assembly.Merged,
		"dropped": assembly.Dropped,
		"sheets":  fmt.Sprintf("%d/%d", len(assembly.Used), len(sheets)),
	}).Info("compiler: assembled scene")

	return &Result{Map: m, Sheets: sheets, Assembly: assembly, Scene: data, Bundle: bundle}, nil
}

// debugEnabled reports whether log would emit debug entries. Unknown
// loggers are assumed to.
func debugEnabled(log logrus.FieldLogger) bool {
	switch l := log.(type) {
	case *logrus.Logger:
		return l.IsLevelEnabled(logrus.DebugLevel)
	case *logrus.Entry:
		return l.Logger.IsLevelEnabled(logrus.DebugLevel)
	}
	return true
}

// Run compiles mapPath and writes the bundle to outDir. Nothing is written
// unless compilation succeeds.
func Run(mapPath, outDir string, cfg config.Config, log logrus.FieldLogger) error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	res, err := Compile(mapPath, cfg, nil, log)
	if err != nil {
		return err
	}
	if err := res.Bundle.Write(outDir, log); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"output": outDir, "files": len(res.Bundle.Files)}).Info("compiler: wrote bundle")
	return nil
}
