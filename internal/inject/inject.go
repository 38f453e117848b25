// Package inject compiles a generated descriptor against its artifact and
// adds the resulting module-info.class to the jar.
package inject

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"modpatch/internal/archive"
	"modpatch/internal/descriptor"
	"modpatch/internal/errors"
	"modpatch/internal/fsutil"
	"modpatch/internal/synth"
	"modpatch/internal/toolrun"
)

// Request describes one injection.
type Request struct {
	Descriptor    *descriptor.Descriptor
	ModuleVersion string
	// Artifact is the unpatched jar, normally the copy in the not-modules area.
	Artifact  string
	OutputDir string
	// Open rewrites the header to "open module X {" before compiling.
	Open bool
}

// Injector runs javac once per artifact.
type Injector struct {
	Tool       toolrun.Tool
	SearchPath synth.SearchPath
	// TempDir is the parent for per-artifact scratch directories; empty means os.TempDir.
	TempDir string
	Logger  *slog.Logger
	Debug   bool
}

// CompileArgs is the javac argument list for one descriptor.
func CompileArgs(moduleVersion, searchPath, module, artifact, outDir, source string) []string {
	return []string{
		"--module-version", moduleVersion,
		"--module-path", searchPath,
		"--patch-module", module + "=" + artifact,
		"-d", outDir,
		source,
	}
}

// Inject compiles the descriptor and writes the patched jar to
// <OutputDir>/<artifact base name>. It returns the written path.
func (in *Injector) Inject(ctx context.Context, req Request) (string, error) {
	if req.Descriptor == nil {
		return "", errors.New(errors.InternalError, "no descriptor to inject", nil).ForArtifact(req.Artifact)
	}
	if in.Debug {
		in.Logger.Info("Adding info for " + filepath.Base(req.Artifact))
	}

	module, err := req.Descriptor.Module()
	if err != nil {
		return "", errors.New(errors.ToolInvocationFailure, "generated descriptor is not compilable", err).ForArtifact(req.Artifact)
	}
	source := req.Descriptor.Source
	if req.Open {
		if source, err = req.Descriptor.Opened(); err != nil {
			return "", errors.New(errors.ToolInvocationFailure, "generated descriptor is not compilable", err).ForArtifact(req.Artifact)
		}
	}

	scratch, err := os.MkdirTemp(in.TempDir, "modpatch-"+module+"-")
	if err != nil {
		return "", errors.New(errors.CopyFailure, "cannot create compile directory", err).ForArtifact(req.Artifact)
	}
	defer os.RemoveAll(scratch)

	class, err := in.compile(ctx, req, module, source, scratch)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(req.OutputDir, filepath.Base(req.Artifact))
	if err := Merge(req.Artifact, class, dst); err != nil {
		return "", errors.New(errors.CopyFailure, "cannot write patched archive", err).ForArtifact(req.Artifact)
	}
	in.Logger.Debug("descriptor injected", "artifact", req.Artifact, "module", module, "dest", dst)
	return dst, nil
}

func (in *Injector) compile(ctx context.Context, req Request, module, source, scratch string) ([]byte, error) {
	srcDir := filepath.Join(scratch, "src")
	outDir := filepath.Join(scratch, "classes")
	for _, d := range []string{srcDir, outDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, errors.New(errors.CopyFailure, "cannot create compile directory", err).ForArtifact(req.Artifact)
		}
	}
	srcFile := filepath.Join(srcDir, synth.DescriptorFile)
	if err := os.WriteFile(srcFile, []byte(source), 0o644); err != nil {
		return nil, errors.New(errors.CopyFailure, "cannot stage descriptor source", err).ForArtifact(req.Artifact)
	}

	artifact, err := filepath.Abs(req.Artifact)
	if err != nil {
		return nil, errors.New(errors.InternalError, "cannot resolve artifact path", err).ForArtifact(req.Artifact)
	}
	args := CompileArgs(req.ModuleVersion, in.SearchPath.String(), module, artifact, outDir, srcFile)
	if _, err := in.Tool.Invoke(ctx, args...); err != nil {
		if me, ok := err.(*errors.ModError); ok {
			return nil, me.ForArtifact(req.Artifact)
		}
		return nil, err
	}

	class, err := os.ReadFile(filepath.Join(outDir, archive.DescriptorEntry))
	if err != nil {
		return nil, errors.Newf(errors.ToolInvocationFailure, err,
			"%s produced no %s", in.Tool.Name, archive.DescriptorEntry).ForArtifact(req.Artifact)
	}
	return class, nil
}

// Merge writes dst as a copy of src with class added as the root descriptor.
// Any descriptor already at the root of src is replaced. Other entries are
// copied without recompression. dst may be src.
func Merge(src string, class []byte, dst string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	return fsutil.WriteAtomic(dst, func(out io.Writer) error {
		w := zip.NewWriter(out)
		for _, f := range r.File {
			if f.Name == archive.DescriptorEntry {
				continue
			}
			if err := w.Copy(f); err != nil {
				return fmt.Errorf("copy %s: %w", f.Name, err)
			}
		}

		fw, err := w.CreateHeader(&zip.FileHeader{Name: archive.DescriptorEntry, Method: zip.Deflate})
		if err != nil {
			return err
		}
		if _, err := fw.Write(class); err != nil {
			return err
		}
		return w.Close()
	})
}
