package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/api/auth"
)

func main() {
	var (
		ttl     = flag.Duration("ttl", 30*time.Minute, "token TTL (e.g. 30m, 2h)")
		subject = flag.String("sub", "admin", "subject (sub); idempotency keys are scoped to it")
		envKey  = flag.String("env", "ADMIN_JWT_PRIVATE_KEY", "env var containing RSA private key PEM")
	)
	flag.Parse()

	if *ttl <= 0 {
		fmt.Fprintln(os.Stderr, "ttl must be positive")
		os.Exit(2)
	}

	priv, err := auth.LoadRSAPrivateKeyFromEnv(*envKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load private key failed: %v\n", err)
		os.Exit(1)
	}

	s, err := auth.SignAdminRS256(priv, *subject, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(s)
}
