package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"certledger.dev/certledger/ledger"
)

func main() {
	fs := flag.NewFlagSet("certledgerd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7878", "listen address")
	state := fs.String("state", "", "JSON snapshot path; loaded on start, saved on shutdown")
	_ = fs.Parse(os.Args[1:])

	srv := ledger.NewServer()
	if *state != "" {
		if err := srv.LoadSnapshot(*state); err != nil {
			fmt.Fprintf(os.Stderr, "load snapshot %s: %v\n", *state, err)
			os.Exit(1)
		}
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	ledger.RegisterLedgerServer(s, srv)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		s.GracefulStop()
	}()

	fmt.Fprintf(os.Stderr, "certledgerd listening on %s\n", lis.Addr().String())
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *state != "" {
		if err := srv.SaveSnapshot(*state); err != nil {
			fmt.Fprintf(os.Stderr, "save snapshot %s: %v\n", *state, err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "state saved to %s\n", *state)
	}
}
