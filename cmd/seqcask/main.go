package main

import (
	"fmt"
	"os"
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

func execute(args []string) int {
	if len(args) < 1 {
		printUsage()
		return 1
	}

	var err error
	switch args[0] {
	case "serve":
		err = runServe(args[1:])
	case "ingest":
		err = runIngest(args[1:], false)
	case "rebuild":
		err = runIngest(args[1:], true)
	case "get":
		err = runGet(args[1:])
	case "export":
		err = runExport(args[1:])
	case "-h", "--help", "help":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n", args[0])
		printUsage()
		return 1
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "seqcask:", err)
		return exitCode(err)
	}
	return 0
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "seqcask - FASTA sequence index and retrieval server")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  seqcask <command> [options]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  serve      Answer lookups over TCP")
	fmt.Fprintln(os.Stderr, "  ingest     Index FASTA files of a dataset")
	fmt.Fprintln(os.Stderr, "  rebuild    Drop a dataset and index it again")
	fmt.Fprintln(os.Stderr, "  get        Print the records of an identifier")
	fmt.Fprintln(os.Stderr, "  export     Write the entries of a sample as a bulk-load TSV")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Every command reads -config (default seqcask.json) before its flags.")
	fmt.Fprintln(os.Stderr, "Run 'seqcask <command> -h' for command-specific options.")
}
