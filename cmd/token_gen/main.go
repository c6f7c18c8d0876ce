// token_gen signs a playback token the way the control plane does, for
// operators and integration tests.
//
//	token_gen -tenant tenant-a -camera camera-a -sub viewer-1 -ttl 60
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nearhome/stream-gateway/internal/tokens"
)

func main() {
	tenant := flag.String("tenant", "", "tenant id (required)")
	camera := flag.String("camera", "", "camera id (required)")
	sub := flag.String("sub", "viewer", "subject")
	sid := flag.String("sid", "", "session id (default: random UUID)")
	ttl := flag.Int("ttl", 60, "token lifetime in seconds")
	secret := flag.String("secret", "", "HMAC secret (default: STREAM_TOKEN_SECRET env)")
	secretFile := flag.String("secret-file", "", "read HMAC secret from file")
	flag.Parse()

	if *tenant == "" || *camera == "" {
		flag.Usage()
		os.Exit(2)
	}

	key := *secret
	if *secretFile != "" {
		data, err := os.ReadFile(*secretFile)
		if err != nil {
			log.Fatalf("read secret file: %v", err)
		}
		key = strings.TrimSpace(string(data))
	}
	if key == "" {
		key = os.Getenv("STREAM_TOKEN_SECRET")
	}
	if key == "" {
		log.Fatal("no secret: pass -secret, -secret-file or set STREAM_TOKEN_SECRET")
	}

	sessionID := *sid
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	now := time.Now()
	token, err := tokens.Sign(tokens.Claims{
		Sub:       *sub,
		TenantID:  *tenant,
		CameraID:  *camera,
		SessionID: sessionID,
		Exp:       now.Add(time.Duration(*ttl) * time.Second).Unix(),
		Iat:       now.Unix(),
		Version:   1,
	}, []byte(key))
	if err != nil {
		log.Fatalf("sign: %v", err)
	}

	fmt.Println(token)
	fmt.Printf("\nPlayback URL:\n  /playback/%s/%s/index.m3u8?token=%s\n", *tenant, *camera, token)
}
