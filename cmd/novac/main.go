/*
Copyright 2025 The goARRG Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"goarrg.com/asset"
	"goarrg.com/debug"
	"golang.org/x/tools/go/packages"

	"goarrg.com/nova"
)

var flags flag.FlagSet

type generator uint32

const (
	generatorNone generator = iota
	generatorJSON
	generatorGO
)

func (g *generator) UnmarshalText(data []byte) error {
	switch string(data) {
	case "none":
		*g = generatorNone
	case "json":
		*g = generatorJSON
	case "go":
		*g = generatorGO
	default:
		return debug.Errorf("Invalid value: %q", data)
	}
	return nil
}

func (g generator) MarshalText() (text []byte, err error) {
	switch g {
	case generatorNone:
		return ([]byte)("none"), nil
	case generatorJSON:
		return ([]byte)("json"), nil
	case generatorGO:
		return ([]byte)("go"), nil
	default:
		return nil, debug.Errorf("Invalid value: %d", g)
	}
}

type shader struct {
	Name  string
	SPIRV []byte
}

func main() {
	debug.SetLevel(debug.LogLevelWarn)

	flags.Usage = help
	flags.Init("", flag.ExitOnError)

	v := flags.Bool("v", false, "Verbose - Print high level tasks")
	vv := flags.Bool("vv", false, "Very Verbose - Print everything")

	dir := flags.String("dir", ".", "Sets the directory <file> is resolved against.")
	outDir := flags.String("out-dir", ".", "Sets the output directory.")

	g := generator(0)
	flags.TextVar(&g, "generator", generatorNone, "Sets the generator used to embed the SPIR-V.\n"+
		"Valid values are \"none\", \"json\" and \"go\".")
	skipSPV := flags.Bool("skip-spirv", false, "Do not output the .spv file.")

	err := flags.Parse(os.Args[1:])
	if err != nil {
		panic(err)
	}

	if *v {
		debug.SetLevel(debug.LogLevelInfo)
	} else if *vv {
		debug.SetLevel(debug.LogLevelVerbose)
	}

	args := flags.Args()
	if len(args) == 0 {
		debug.EPrintf("No input file provided.")
		help()
		os.Exit(2)
	} else if len(args) > 1 {
		debug.EPrintf("novac can only compile one file at a time.")
		help()
		os.Exit(2)
	}

	name := args[0]
	debug.IPrintf("Compiling shader")
	s, err := compile(asset.DirFS(*dir), name)
	if err != nil {
		debug.EPrintf("%v", err)
		os.Exit(1)
	}

	outName := strings.TrimSuffix(filepath.Base(name), path.Ext(name))
	err = os.MkdirAll(*outDir, 0o755)
	if err != nil {
		panic(err)
	}

	if !*skipSPV {
		spvFile := filepath.Join(*outDir, outName+".spv")
		debug.IPrintf("Writing SPIRV to: %q", spvFile)
		err := os.WriteFile(spvFile, s.SPIRV, 0o644)
		if err != nil {
			panic(err)
		}
	}

	switch g {
	case generatorJSON:
		genJson(*outDir, outName, s)
	case generatorGO:
		genGo(*outDir, outName, s)
	}
}

// compile reads name from fs, WGSL is compiled and anything else is checked to be SPIR-V.
func compile(fs *asset.FileSystem, name string) (*shader, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to open %q", name)
	}
	defer f.Close()

	code, err := io.ReadAll(f)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to read %q", name)
	}
	if path.Ext(name) == ".wgsl" {
		code, err = nova.CompileWGSL(string(code))
		if err != nil {
			return nil, debug.ErrorWrapf(err, "Failed to compile %q", name)
		}
	} else if err := nova.ValidateSPIRV(code); err != nil {
		return nil, debug.ErrorWrapf(err, "%q is not SPIR-V", name)
	}
	debug.IPrintf("%q: %d bytes of SPIR-V", name, len(code))
	return &shader{Name: filepath.ToSlash(name), SPIRV: code}, nil
}

func help() {
	fmt.Fprintf(os.Stderr, "novac compiles WGSL shaders to SPIR-V offline, so the renderer does not need to compile them at startup.\n"+
		"\nThe output can be loaded with nova.LoadShaderModule or passed as RendererOptions.VertexShader and RendererOptions.FragmentShader.\n"+
		"Files that do not end in .wgsl are only checked to be SPIR-V, which is useful to embed precompiled modules.\n"+
		"\n")
	args := ""
	flags.VisitAll(func(f *flag.Flag) {
		n, u := flag.UnquoteUsage(f)
		if f.DefValue != "" {
			u += "\n\nDefaults to \"" + f.DefValue + "\"."
		}
		args += "\t-" + f.Name + " " + n + "\n\t\t" + strings.ReplaceAll(strings.TrimSpace(u), "\n", "\n\t\t") + "\n"
	})
	fmt.Fprintf(os.Stderr, "Usage:\n\t%s [arguments] <file>\n\nArguments:\n%s", filepath.Base(os.Args[0]), args)
}

func genJson(dir, name string, s *shader) {
	j, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}

	jsonFile := filepath.Join(dir, name+".json")
	debug.IPrintf("Writing shader to: %q", jsonFile)
	err = os.WriteFile(jsonFile, j, 0o644)
	if err != nil {
		panic(err)
	}
}

// funcName keeps letters and digits of the shader name, path separators and dots become underscores.
func funcName(name string) string {
	sb := strings.Builder{}
	sb.Grow(len(name))
	for _, r := range name {
		if unicode.IsDigit(r) || unicode.IsLetter(r) {
			sb.WriteRune(r)
		}
		if r == '/' || r == '.' {
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

// packageName names the package the generated file joins, falling back to the directory name.
func packageName(dir string) string {
	p, err := packages.Load(&packages.Config{Mode: packages.NeedName}, dir)
	if err != nil {
		panic(debug.ErrorWrapf(err, "Failed to load package at %q", dir))
	}
	switch {
	case len(p) == 0:
		return filepath.Base(dir)
	case p[0].Name != "":
		return filepath.Base(p[0].Name)
	default:
		return filepath.Base(p[0].PkgPath)
	}
}

func genGo(dir, name string, s *shader) {
	filename := filepath.Join(dir, "znovac_"+name+".go")
	debug.IPrintf("Writing shader to: %q", filename)
	fOut, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	defer fOut.Close()

	fmt.Fprintf(fOut, "// go run goarrg.com/nova/cmd/novac %s\n", strings.Join(os.Args[1:], " "))
	fmt.Fprintf(fOut, "// Code generated by the command above; DO NOT EDIT.\n\n")
	fmt.Fprintf(fOut, "package %s\n\n", packageName(dir))

	fmt.Fprintf(fOut, "func novacLoad_%s() []byte {\n", funcName(s.Name))
	fmt.Fprintf(fOut, "\treturn %#v\n", s.SPIRV)
	fmt.Fprintf(fOut, "}\n")
}
