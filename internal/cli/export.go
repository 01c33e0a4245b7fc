package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/openapi"
	"github.com/aretw0/arbor/internal/presentation/schema"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"gopkg.in/yaml.v3"
)

// Graph prints the Mermaid chart of a tree or a workflow.
func Graph(ctx context.Context, env *Env, tree, workflow string) error {
	lib, err := arbor.Load(ctx, env.Config.Dir)
	if err != nil {
		return err
	}
	switch {
	case tree != "" && workflow != "":
		return errors.New("--tree and --workflow cannot be used together")
	case workflow != "":
		wf, err := lib.WorkflowByTitle(workflow)
		if err != nil {
			return err
		}
		fmt.Fprint(env.Out, graph.Workflow(wf))
	default:
		if tree == "" {
			return errors.New("one of --tree or --workflow is required")
		}
		t, err := lib.TreeByName(tree)
		if err != nil {
			return err
		}
		fmt.Fprint(env.Out, graph.Tree(t, lib, nil))
	}
	return nil
}

// Describe renders a tree or workflow as markdown, styled on a terminal.
func Describe(ctx context.Context, env *Env, tree, workflow string) error {
	lib, err := arbor.Load(ctx, env.Config.Dir)
	if err != nil {
		return err
	}

	var md string
	switch {
	case workflow != "":
		wf, err := lib.WorkflowByTitle(workflow)
		if err != nil {
			return err
		}
		md = tui.WorkflowMarkdown(wf)
	case tree != "":
		t, err := lib.TreeByName(tree)
		if err != nil {
			return err
		}
		md = tui.TreeMarkdown(t, lib)
	default:
		return errors.New("one of --tree or --workflow is required")
	}

	out, err := tui.NewRenderer(tui.IsTerminal(env.Out))(md)
	if err != nil {
		return err
	}
	fmt.Fprint(env.Out, out)
	return nil
}

// Schema writes the JSON Schema of one document kind to the output, or of
// every kind into outDir as <kind>.schema.json.
func Schema(env *Env, kind, outDir string) error {
	if outDir == "" {
		k, err := schema.ParseKind(kind)
		if err != nil {
			return err
		}
		data, err := schema.Marshal(k)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(env.Out, string(data))
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, k := range schema.Kinds {
		data, err := schema.Marshal(k)
		if err != nil {
			return err
		}
		path := filepath.Join(outDir, string(k)+".schema.json")
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return err
		}
		env.Logger.Info("schema written", "kind", k, "path", path)
	}
	return nil
}

// OpenAPI writes the OpenAPI document of a module as YAML to the output, or
// of every module into outDir as <module>.openapi.yaml.
func OpenAPI(ctx context.Context, env *Env, module, outDir string) error {
	lib, err := arbor.Load(ctx, env.Config.Dir)
	if err != nil {
		return err
	}

	if outDir == "" {
		mods := lib.Modules()
		m, ok := mods.Content[module]
		if !ok {
			return fmt.Errorf("unknown module %q (known: %v)", module, lib.ModuleNames())
		}
		doc, err := openapi.Module(module, m, mods.Version)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = env.Out.Write(data)
		return err
	}

	docs, err := openapi.Library(lib)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for name, doc := range docs {
		data, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		path := filepath.Join(outDir, name+".openapi.yaml")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		env.Logger.Info("openapi written", "module", name, "path", path)
	}
	return nil
}
