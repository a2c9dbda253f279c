package stash

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path"
	"reflect"
	"runtime"
	"strings"

	"figstash/internal/textutil"
)

// ErrNoSource reports that a function's source code cannot be located.
var ErrNoSource = errors.New("source unavailable")

// FuncInfo identifies a plotting function and where its source lives.
type FuncInfo struct {
	// Name is the fully qualified runtime name, e.g. example.com/plots.Scatter.
	Name    string `toml:"name" json:"name"`
	Package string `toml:"package" json:"package"`
	// Symbol is Name without the package path, e.g. Scatter or (*Chart).Draw.
	Symbol string `toml:"symbol" json:"symbol"`
	File   string `toml:"file" json:"file"`
	Line   int    `toml:"line" json:"line"`
	// ModuleFile and DeclFile are the artifact paths inside the backup.
	ModuleFile string `toml:"module_file" json:"module_file"`
	DeclFile   string `toml:"decl_file,omitempty" json:"decl_file,omitempty"`
}

func describeFunc(fn any) (*FuncInfo, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("%w: %T is not a function", ErrNoSource, fn)
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return nil, fmt.Errorf("%w: no runtime information", ErrNoSource)
	}
	name := rf.Name()
	if strings.HasSuffix(name, "-fm") {
		return nil, fmt.Errorf("%w: %s is a method value", ErrNoSource, strings.TrimSuffix(name, "-fm"))
	}
	file, line := rf.FileLine(rf.Entry())
	if file == "" || strings.HasPrefix(file, "<") {
		return nil, fmt.Errorf("%w: %s has no source file", ErrNoSource, name)
	}

	pkg, symbol := splitFuncName(name)
	info := &FuncInfo{
		Name:    name,
		Package: pkg,
		Symbol:  symbol,
		File:    file,
		Line:    line,
	}
	info.ModuleFile = moduleArtifact(pkg, file)
	if decl := textutil.SanitizeFileName(declName(symbol)); decl != "" {
		info.DeclFile = decl + ".go"
	}
	return info, nil
}

// splitFuncName separates a runtime function name into its package path and
// the symbol within that package. Type parameter lists are dropped.
func splitFuncName(name string) (pkg, symbol string) {
	name = strings.ReplaceAll(name, "[...]", "")
	slash := strings.LastIndex(name, "/")
	dot := strings.Index(name[slash+1:], ".")
	if dot < 0 {
		return "", name
	}
	cut := slash + 1 + dot
	return name[:cut], name[cut+1:]
}

// moduleArtifact nests the source file under its package path.
func moduleArtifact(pkg, file string) string {
	parts := strings.Split(pkg, "/")
	clean := make([]string, 0, len(parts)+1)
	for _, p := range parts {
		if s := textutil.SanitizeFileName(p); s != "" {
			clean = append(clean, s)
		}
	}
	base := file
	if i := strings.LastIndexAny(file, `/\`); i >= 0 {
		base = file[i+1:]
	}
	clean = append(clean, base)
	return path.Join(clean...)
}

// declName turns (*Chart).Draw into Chart.Draw.
func declName(symbol string) string {
	r := strings.NewReplacer("(*", "", "(", "", ")", "")
	return r.Replace(symbol)
}

// extractDecl returns the source text of the declaration behind info.
// Top-level functions and methods are found by name, closures by line.
func extractDecl(src []byte, info *FuncInfo) ([]byte, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, info.File, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", info.File, err)
	}

	recv, fname, closure := parseSymbol(info.Symbol)
	if !closure {
		for _, d := range file.Decls {
			fd, ok := d.(*ast.FuncDecl)
			if !ok || fd.Name.Name != fname || receiverName(fd) != recv {
				continue
			}
			start := fd.Pos()
			if fd.Doc != nil {
				start = fd.Doc.Pos()
			}
			return slice(fset, src, start, fd.End()), nil
		}
		return nil, fmt.Errorf("%w: declaration of %s not found in %s", ErrNoSource, info.Symbol, info.File)
	}

	var best *ast.FuncLit
	ast.Inspect(file, func(n ast.Node) bool {
		lit, ok := n.(*ast.FuncLit)
		if !ok {
			return true
		}
		startLine := fset.Position(lit.Pos()).Line
		endLine := fset.Position(lit.End()).Line
		if startLine <= info.Line && info.Line <= endLine {
			if best == nil || lit.Pos() > best.Pos() {
				best = lit
			}
		}
		return true
	})
	if best == nil {
		return nil, fmt.Errorf("%w: closure %s not found in %s", ErrNoSource, info.Symbol, info.File)
	}
	return slice(fset, src, best.Pos(), best.End()), nil
}

func slice(fset *token.FileSet, src []byte, start, end token.Pos) []byte {
	from := fset.Position(start).Offset
	to := fset.Position(end).Offset
	out := make([]byte, 0, to-from+1)
	out = append(out, src[from:to]...)
	return append(out, '\n')
}

// parseSymbol splits Scatter, Chart.Draw, (*Chart).Draw and Scatter.func1.
func parseSymbol(symbol string) (recv, name string, closure bool) {
	if strings.Contains(symbol, ".func") || strings.Contains(symbol, ".gowrap") {
		return "", "", true
	}
	head, tail, found := strings.Cut(symbol, ".")
	if !found {
		return "", symbol, false
	}
	head = strings.TrimSuffix(strings.TrimPrefix(head, "(*"), ")")
	return head, tail, false
}

func receiverName(fd *ast.FuncDecl) string {
	if fd.Recv == nil || len(fd.Recv.List) == 0 {
		return ""
	}
	expr := fd.Recv.List[0].Type
	for {
		switch t := expr.(type) {
		case *ast.StarExpr:
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.ParenExpr:
			expr = t.X
		case *ast.Ident:
			return t.Name
		default:
			return ""
		}
	}
}

func readSource(info *FuncInfo) ([]byte, error) {
	src, err := os.ReadFile(info.File)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSource, err)
	}
	return src, nil
}
