package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/BertoldVdb/ADMXBridge/bridge/bridgeclient"
)

func main() {
	destination := flag.String("destination", "", "Skip discovery and use this server (host:port)")
	boardID := flag.String("board", "", "Only accept a bridge with this board ID")
	discoverTimeout := flag.Duration("timeout", 10*time.Second, "Discovery timeout")
	login := flag.String("login", "", "Credentials for a server started with an API key (user:password)")

	flag.Parse()

	destAddr := *destination
	if destAddr == "" {
		log.Println("Searching for bridge")

		ctx, cancel := context.WithTimeout(context.Background(), *discoverTimeout)
		discovery, err := bridgeclient.Discover(ctx, *boardID)
		cancel()
		if err != nil {
			log.Fatalln("Failed to discover:", err)
		}
		log.Printf("Found bridge %s (firmware %s) at %s", discovery.BoardID, discovery.Firmware, discovery.Addr)

		destAddr = discovery.Addr
	}

	if *login != "" {
		destAddr = *login + "@" + destAddr
	}

	client, err := bridgeclient.New("http://" + destAddr)
	if err != nil {
		log.Fatalln("Failed to connect:", err)
	}
	defer client.Close()

	log.Printf("Connected to board %s, firmware %s", client.BoardID(), client.Firmware())

	run := func(line string) {
		lines, err := client.Command(line)
		if errors.Is(err, bridgeclient.ErrBusy) {
			log.Printf("'%s' refused, a task is still running", line)
			return
		}
		if err != nil {
			log.Fatalf("'%s' failed: %v", line, err)
		}

		for _, m := range lines {
			fmt.Println(m)
		}
	}

	if flag.NArg() > 0 {
		for _, m := range flag.Args() {
			run(m)
		}
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			run(line)
		}
	}
}
