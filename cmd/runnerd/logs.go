// Copyright 2024 github.com/ucirello
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"
	"nhooyr.io/websocket"

	"cirello.io/runnerd/internal/logstream"
)

// logsCommand dials a running daemon's logstream websocket endpoint and
// prints lines as they arrive, reconnecting on transient failures. It is
// the client-side companion to internal/logstream.Server.
func logsCommand() *cli.Command {
	return &cli.Command{
		Name:  "logs",
		Usage: "tail a running runnerd's log stream",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "localhost:7000", Usage: "logstream HTTP address"},
			&cli.StringFlag{Name: "filter", Usage: "only show lines whose script or text contains this substring"},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			return tailLogs(ctx, c.String("addr"), c.String("filter"))
		},
	}
}

func tailLogs(ctx context.Context, addr, filter string) error {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/logs"}
	if filter != "" {
		q := u.Query()
		q.Set("filter", filter)
		u.RawQuery = q.Encode()
	}
	log.Printf("connecting to %s", u.String())

	follow := func() (outErr error) {
		ws, _, err := websocket.Dial(ctx, u.String(), nil)
		if err != nil {
			return fmt.Errorf("cannot dial logstream endpoint: %v", err)
		}
		defer func() {
			err := ws.CloseNow()
			if outErr == nil && err != nil {
				outErr = err
			}
		}()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				_, data, err := ws.Read(ctx)
				if err != nil {
					log.Println("read:", err)
					return
				}
				var msg logstream.LogMessage
				if err := json.Unmarshal(data, &msg); err != nil {
					log.Println("decode:", err)
					continue
				}
				fmt.Println(msg.Script+":", msg.Line)
			}
		}()

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			log.Println("interrupt")
			ws.Close(websocket.StatusNormalClosure, "")
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := follow(); err != nil {
				return err
			}
		}
	}
}
