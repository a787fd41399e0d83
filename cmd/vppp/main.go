package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	verilogperl "github.com/berkakinci/verilog-perl"
)

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string { return fmt.Sprint([]string(*m)) }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func main() {
	var defines, incdirs multiFlag
	flag.Var(&defines, "D", "define NAME or NAME=VALUE (repeatable)")
	flag.Var(&incdirs, "I", "add directory to the `include search path (repeatable)")
	stripComments := flag.Bool("C", false, "strip comments from the output")
	noLines := flag.Bool("P", false, "do not emit `line directives")
	pedantic := flag.Bool("pedantic", false, "warn about questionable but legal input")
	outFile := flag.String("o", "", "write output to file instead of stdout")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: vppp [options] <filename.v>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	vp := verilogperl.New()
	vp.IncludeDirs = incdirs
	vp.LineDirectives = !*noLines
	vp.Pedantic = *pedantic
	if *stripComments {
		vp.KeepComments = verilogperl.KeepCmtOff
	}
	vp.ErrorFn = func(d verilogperl.Diagnostic) {
		fmt.Fprintln(os.Stderr, d)
	}
	for _, def := range defines {
		name, value := verilogperl.ParseDefine(def)
		vp.Define(name, value, "")
	}

	out, diags, err := vp.ProcessFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	if *outFile != "" {
		if err := os.WriteFile(*outFile, []byte(out), 0644); err != nil {
			fmt.Fprintln(os.Stderr, "Error writing file: ", err)
			os.Exit(1)
		}
	} else {
		os.Stdout.WriteString(out)
	}

	if len(diags) > 0 {
		os.Exit(1)
	}
}
