package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parley/internal/peer"
	"parley/internal/peer/signaling"
	"parley/pkg/config"
	"parley/pkg/logger"
	"parley/pkg/retry"
	"parley/pkg/utils"
	"parley/pkg/validation"

	webrtc "github.com/pion/webrtc/v3"
)

func main() {
	var (
		serverURL = flag.String("server", "ws://localhost:8081/ws", "rendezvous server URL")
		roomID    = flag.String("room", "", "room id to create or join")
		name      = flag.String("name", "", "display name (joining only; defaults to a generated one)")
		create    = flag.Bool("create", false, "create the room instead of joining it")
		withMedia = flag.Bool("media", true, "announce audio and video tracks")
		cfgPath   = flag.String("config", "configs/config.yaml", "config file for ICE servers and logging")
	)
	flag.Parse()

	if *roomID == "" {
		log.Fatal("-room is required")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	if err := validation.ValidateRoomID(*roomID, cfg.Rooms.MaxIDLength); err != nil {
		log.Fatalf("invalid room id: %v", err)
	}

	appLog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer appLog.Sync()

	username := *name
	if username == "" {
		username = utils.GenerateParticipantName()
	}
	if err := validation.ValidateParticipantName(username, cfg.Rooms.MaxNameLength); err != nil {
		appLog.Fatalw("invalid name", "error", err)
	}

	var iceServers []webrtc.ICEServer
	for _, s := range cfg.ICE.Servers {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       s.URLs,
			Username:   s.Username,
			Credential: s.Credential,
		})
	}

	var media peer.MediaSource = peer.NullSource{}
	if *withMedia {
		source, err := peer.NewSampleSource(*roomID)
		if err != nil {
			appLog.Fatalw("media setup failed", "error", err)
		}
		media = source
	}
	defer media.Close()

	session := peer.NewSession(peer.NewPionFactory(iceServers, media), nil, appLog)

	var client *signaling.Client
	client = signaling.New(*serverURL, signaling.Events{
		OnRoomUpdated: func(users []string, offerer string) {
			if offerer == client.Username() {
				session.SetRole(peer.RoleOfferer)
			} else {
				session.SetRole(peer.RoleAnswerer)
			}
			appLog.Infow("room updated", "users", users, "offerer", offerer)

			// The creator opens the negotiation once a second member is in.
			if len(users) == 2 && session.Role() == peer.RoleOfferer {
				if err := session.Call(); err != nil {
					appLog.Errorw("call failed", "error", err)
				}
			}
		},
		OnOffer: func(sdp json.RawMessage, from string) {
			session.HandleRemoteOffer(sdp)
			if err := session.Answer(); err != nil {
				appLog.Errorw("answer failed", "error", err)
			}
		},
		OnAnswer: func(sdp json.RawMessage, from string) {
			session.HandleRemoteAnswer(sdp)
		},
		OnCandidate: func(candidate json.RawMessage, from string) {
			session.HandleRemoteCandidate(candidate)
		},
		OnUserLeft: func(left string) {
			appLog.Infow("peer left", "username", left)
			session.HandlePeerLeft()
			if err := session.AcquireMedia(); err == nil {
				if err := session.Connect(); err != nil {
					appLog.Errorw("reconnect setup failed", "error", err)
				}
			}
		},
		OnError: func(message string) {
			appLog.Warnw("server error", "message", message)
		},
	}, appLog)

	session.SetOutbound(client)

	dialCfg := retry.DefaultConfig()
	dialCfg.MaxAttempts = 5
	dialCfg.MaxDelay = 10 * time.Second
	err = retry.Retry(context.Background(), dialCfg, func() error {
		return client.Connect(context.Background())
	})
	if err != nil {
		appLog.Fatalw("could not reach rendezvous server", "url", *serverURL, "error", err)
	}
	defer client.Close()

	if err := session.AcquireMedia(); err != nil {
		appLog.Fatalw("media step failed", "error", err)
	}
	if err := session.Connect(); err != nil {
		appLog.Fatalw("transport step failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if *create {
		if err := client.CreateRoom(ctx, *roomID); err != nil {
			appLog.Fatalw("create-room failed", "error", err)
		}
		session.SetRole(peer.RoleOfferer)
		appLog.Infow("room created, waiting for a peer", "room", *roomID)
	} else {
		users, err := client.JoinRoom(ctx, *roomID, username)
		if err != nil {
			appLog.Fatalw("join-room failed", "error", err)
		}
		session.SetRole(peer.RoleAnswerer)
		appLog.Infow("joined room", "room", *roomID, "users", users)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		appLog.Info("hanging up")
	case <-client.Done():
		appLog.Info("connection closed by server")
	}

	session.HangUp()
	client.LeaveRoom()
	// Give the leave message a moment to flush before tearing down.
	time.Sleep(200 * time.Millisecond)
}
