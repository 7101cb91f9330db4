package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"companion-backend/internal/qrcode"
)

func main() {
	text := flag.String("text", "", "content to encode")
	outPath := flag.String("out", qrcode.DefaultFileName, "output path for the PNG")
	flag.Parse()

	content := *text
	if content == "" {
		content = strings.Join(flag.Args(), " ")
	}

	if err := qrcode.WriteFile(content, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "qr generation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OK: wrote %s\n", *outPath)
}
