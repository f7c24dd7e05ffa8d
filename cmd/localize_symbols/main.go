// localize_symbols rewrites an ELF shared library so that the named
// dynamic symbols get local binding and hidden visibility, without
// relinking. It is the post-link step applied to merged libraries whose
// constituents exported symbols that must not leak from the combined
// output.
package main

import (
	"bufio"
	"flag"
	"log"
	"os"
	"strings"

	"android/libmerge/elfsym"
)

var (
	input    = flag.String("i", "", "input shared library")
	output   = flag.String("o", "", "output shared library")
	symbols  = flag.String("s", "", "comma separated list of symbols to localize")
	symbolsF = flag.String("f", "", "file with one symbol to localize per line")
)

func main() {
	flag.Parse()

	if *input == "" || *output == "" {
		flag.Usage()
		os.Exit(2)
	}

	var names []string
	if *symbols != "" {
		names = strings.Split(*symbols, ",")
	}
	if *symbolsF != "" {
		f, err := os.Open(*symbolsF)
		if err != nil {
			log.Fatalf("%s", err.Error())
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				names = append(names, line)
			}
		}
		if err := scanner.Err(); err != nil {
			log.Fatalf("%s: %s", *symbolsF, err.Error())
		}
		f.Close()
	}
	if len(names) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := elfsym.Localize(*input, *output, names); err != nil {
		log.Fatalf("%s", err.Error())
	}
}
