package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/ffi-runtime/call"
	"github.com/wippyai/ffi-runtime/ctype"
	"github.com/wippyai/ffi-runtime/dl"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB"))

	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

type fieldDesc struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type structDesc struct {
	Name   string      `yaml:"name"`
	Union  bool        `yaml:"union"`
	Fields []fieldDesc `yaml:"fields"`
}

type funcDesc struct {
	Name  string   `yaml:"name"`
	Args  []string `yaml:"args"`
	Ret   string   `yaml:"ret"`
	Errno bool     `yaml:"errno"`
}

type fileDesc struct {
	Structs   []structDesc `yaml:"structs"`
	Functions []funcDesc   `yaml:"functions"`
	Symbols   []string     `yaml:"symbols"`
}

func main() {
	var (
		file    = flag.String("file", "", "YAML type description to dump")
		libName = flag.String("lib", "", "Shared library for symbol resolution (default: process scope)")
		resolve = flag.String("resolve", "", "Extra symbols to resolve (comma-separated)")
		noColor = flag.Bool("no-color", false, "Disable styled output")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: ffidump -file <types.yaml> [-lib libm.so.6] [-resolve sqrt,cbrt]")
		os.Exit(1)
	}

	if *noColor || !term.IsTerminal(int(os.Stdout.Fd())) {
		plain := lipgloss.NewStyle()
		titleStyle, headerStyle, fieldStyle, noteStyle, errorStyle = plain, plain, plain, plain, plain
	}

	if err := run(*file, *libName, *resolve); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func run(file, libName, resolve string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	var desc fileDesc
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	named := make(map[string]*ctype.Type)
	for _, sd := range desc.Structs {
		st, err := buildStruct(sd, named)
		if err != nil {
			return fmt.Errorf("struct %s: %w", sd.Name, err)
		}
		named[sd.Name] = st
		printStruct(st)
	}

	for _, fd := range desc.Functions {
		if err := printFunction(fd, named); err != nil {
			return fmt.Errorf("function %s: %w", fd.Name, err)
		}
	}

	symbols := desc.Symbols
	if resolve != "" {
		symbols = append(symbols, strings.Split(resolve, ",")...)
	}
	if len(symbols) > 0 {
		lib := dl.Default()
		if libName != "" {
			lib, err = dl.Open(libName)
			if err != nil {
				return err
			}
			defer lib.Close()
		}
		printSymbols(lib, symbols)
	}
	return nil
}

func buildStruct(sd structDesc, named map[string]*ctype.Type) (*ctype.Type, error) {
	b := ctype.NewStructBuilder(sd.Name)
	if sd.Union {
		b = ctype.NewUnionBuilder(sd.Name)
	}
	for _, fd := range sd.Fields {
		ft, err := parseType(fd.Type, named)
		if err != nil {
			return nil, err
		}
		if _, err := b.AddField(fd.Name, ft); err != nil {
			return nil, err
		}
	}
	return b.Seal()
}

var primitives = map[string]*ctype.Type{
	"int8":    ctype.Int8,
	"uint8":   ctype.Uint8,
	"int16":   ctype.Int16,
	"uint16":  ctype.Uint16,
	"int32":   ctype.Int32,
	"uint32":  ctype.Uint32,
	"int64":   ctype.Int64,
	"uint64":  ctype.Uint64,
	"uintptr": ctype.Uintptr,
	"float":   ctype.Float32,
	"double":  ctype.Float64,
	"string":  ctype.CString,
}

// parseType resolves a type expression: a primitive name, a previously
// declared struct name, "T*" for pointers, or "T[N]" for arrays.
func parseType(expr string, named map[string]*ctype.Type) (*ctype.Type, error) {
	expr = strings.TrimSpace(expr)

	if strings.HasSuffix(expr, "*") {
		inner, err := parseType(strings.TrimSuffix(expr, "*"), named)
		if err != nil {
			return nil, err
		}
		return ctype.PointerTo(inner), nil
	}
	if open := strings.IndexByte(expr, '['); open >= 0 && strings.HasSuffix(expr, "]") {
		n, err := strconv.Atoi(expr[open+1 : len(expr)-1])
		if err != nil {
			return nil, fmt.Errorf("bad array length in %q", expr)
		}
		inner, err := parseType(expr[:open], named)
		if err != nil {
			return nil, err
		}
		return ctype.ArrayOf(inner, n)
	}
	if t, ok := primitives[strings.TrimSuffix(expr, "_t")]; ok {
		return t, nil
	}
	if t, ok := named[expr]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("unknown type %q", expr)
}

func printStruct(st *ctype.Type) {
	fmt.Println(titleStyle.Render(" " + st.Name() + " "))

	fmt.Printf("  %s\n", headerStyle.Render(fmt.Sprintf("%-16s %-16s %8s %8s %8s", "FIELD", "TYPE", "OFFSET", "SIZE", "ALIGN")))
	for _, f := range st.Fields() {
		size, _ := f.Type.Size()
		align, _ := f.Type.Alignment()
		fmt.Printf("  %s\n", fieldStyle.Render(
			fmt.Sprintf("%-16s %-16s %8d %8d %8d", f.Name, f.Type.Name(), f.Offset, size, align)))
	}

	size, _ := st.Size()
	align, _ := st.Alignment()
	passable := "by-value calls allowed"
	if !st.Passable() {
		passable = "pointer access only"
	}
	fmt.Printf("  %s\n\n", noteStyle.Render(
		fmt.Sprintf("size %d, align %d, %s", size, align, passable)))
}

func printFunction(fd funcDesc, named map[string]*ctype.Type) error {
	args := make([]*ctype.Type, len(fd.Args))
	for i, expr := range fd.Args {
		t, err := parseType(expr, named)
		if err != nil {
			return err
		}
		args[i] = t
	}
	ret := ctype.Void
	if fd.Ret != "" && fd.Ret != "void" {
		var err error
		if ret, err = parseType(fd.Ret, named); err != nil {
			return err
		}
	}
	sig, err := ctype.NewSignature(args, ret)
	if err != nil {
		return err
	}
	if fd.Errno {
		sig = sig.WithErrno()
	}
	spec, err := call.CompileSpec(sig)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(" " + fd.Name + " "))
	fmt.Printf("  %s\n", noteStyle.Render(sig.String()))
	fmt.Printf("  %s\n", headerStyle.Render(fmt.Sprintf("%-8s %-16s %8s", "SLOT", "TYPE", "OFFSET")))
	for i, a := range sig.Args() {
		fmt.Printf("  %s\n", fieldStyle.Render(
			fmt.Sprintf("arg[%-2d]  %-16s %8d", i, a.Name(), spec.ArgOffset(i))))
	}
	fmt.Printf("  %s\n\n", fieldStyle.Render(
		fmt.Sprintf("%-8s %-16s %8d", "return", ret.Name(), spec.ReturnOffset())))
	return nil
}

func printSymbols(lib *dl.Library, symbols []string) {
	fmt.Println(titleStyle.Render(" symbols (" + lib.Name() + ") "))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		addr, err := lib.Lookup(s)
		if err != nil {
			fmt.Printf("  %s\n", errorStyle.Render(fmt.Sprintf("%-24s %v", s, err)))
			continue
		}
		fmt.Printf("  %s\n", fieldStyle.Render(fmt.Sprintf("%-24s 0x%x", s, addr)))
	}
	fmt.Println()
}
