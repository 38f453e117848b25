package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var versionSuffix = regexp.MustCompile(`-\d.*$`)

// ModuleNameFor derives the module name the fake jdeps uses for a jar:
// "commons-lang-2.6.jar" becomes "commons.lang".
func ModuleNameFor(jar string) string {
	name := strings.TrimSuffix(filepath.Base(jar), ".jar")
	name = versionSuffix.ReplaceAllString(name, "")
	return strings.ReplaceAll(name, "-", ".")
}

// Descriptor is the module-info.java text the fake jdeps writes.
func Descriptor(module string) string {
	return fmt.Sprintf("module %s {\n    exports %s;\n}\n", module, module)
}

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// FakeJdeps behaves like `jdeps --generate-module-info <dir> <jar>`: it writes
// <dir>/<module>/module-info.java for the jar named by the last argument.
func FakeJdeps(args []string) (string, string, error) {
	workDir := argAfter(args, "--generate-module-info")
	if workDir == "" || len(args) == 0 {
		return "", "missing --generate-module-info", fmt.Errorf("exit status 2")
	}
	target := args[len(args)-1]
	module := ModuleNameFor(target)
	dir := filepath.Join(workDir, module)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err.Error(), err
	}
	path := filepath.Join(dir, "module-info.java")
	if err := os.WriteFile(path, []byte(Descriptor(module)), 0o644); err != nil {
		return "", err.Error(), err
	}
	return "writing to " + path, "", nil
}

// CompiledDescriptorPrefix starts every class file the fake javac writes.
const CompiledDescriptorPrefix = "\xca\xfe\xba\xbe compiled:"

// FakeJavac behaves like `javac -d <out> ... module-info.java`: it writes
// <out>/module-info.class whose content embeds the source text.
func FakeJavac(args []string) (string, string, error) {
	out := argAfter(args, "-d")
	if out == "" || len(args) == 0 {
		return "", "no -d", fmt.Errorf("exit status 2")
	}
	src, err := os.ReadFile(args[len(args)-1])
	if err != nil {
		return "", err.Error(), err
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", err.Error(), err
	}
	class := CompiledDescriptorPrefix + string(src)
	if err := os.WriteFile(filepath.Join(out, "module-info.class"), []byte(class), 0o644); err != nil {
		return "", err.Error(), err
	}
	return "", "", nil
}
