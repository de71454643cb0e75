package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/kballard/go-shellquote"

	"github.com/0xRadioAc7iv/go-seqcask/internal/config"
	"github.com/0xRadioAc7iv/go-seqcask/seqcask"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

func main() {
	host := flag.String("host", config.DefaultHost, "seqcask server host")
	port := flag.Int("port", config.DefaultPort, "seqcask server port")
	timeout := flag.Duration("timeout", 30*time.Second, "Round trip timeout")
	flag.Parse()

	client, err := seqcask.Connect(
		seqcask.WithHost(*host),
		seqcask.WithPort(*port),
		seqcask.WithTimeout(*timeout),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	// A command on the command line runs once, without the prompt.
	if flag.NArg() > 0 {
		if err := run(client, flag.Args()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	fmt.Printf("Connected to %v:%d\n", *host, *port)
	fmt.Println("Type commands. 'help' for information or 'exit' to quit.")

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print(promptStyle.Render(">") + " ")

		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("input error:", err)
			return
		}

		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		if line == "exit" {
			return
		}

		words, err := shellquote.Split(line)
		if err != nil || len(words) == 0 {
			fmt.Println("parse error:", err)
			continue
		}

		if err := run(client, words); err != nil {
			var remote *seqcask.RemoteError
			if errors.As(err, &remote) {
				fmt.Println(errorStyle.Render(fmt.Sprintf("(error) %s: %s", remote.Status, remote.Message)))
				continue
			}
			log.Fatal(err)
		}
	}
}

func run(client *seqcask.Client, words []string) error {
	resp, err := client.Execute(words[0], words[1:]...)
	if err != nil {
		return err
	}

	out := strings.TrimSuffix(string(resp), "\n")
	if out == "" {
		return nil
	}
	for _, line := range strings.Split(out, "\n") {
		// FASTA header lines stand out from the sequence lines
		if strings.HasPrefix(line, ">") {
			line = headerStyle.Render(line)
		}
		fmt.Println(line)
	}
	return nil
}
