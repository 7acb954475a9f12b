package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lawchat-terminal/internal/logging"
	"lawchat-terminal/internal/mockbackend"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	chunkDelay := flag.Duration("chunk-delay", 200*time.Millisecond, "pause between streamed chunks")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logging.SetOutput(zerolog.ConsoleWriter{Out: os.Stderr}, *level)
	log.Logger = logging.WithComponent("main")

	srv := mockbackend.New(mockbackend.WithChunkDelay(*chunkDelay))
	srv.Seed("talk_001", "你好！", "你好！有什么可以帮您？")
	srv.Seed("talk_002", "宪法是什么？", "宪法是国家的根本大法，具有最高的法律效力。")

	log.Info().Str("addr", *addr).Dur("chunk_delay", *chunkDelay).Msg("mock backend listening")
	if err := http.ListenAndServe(*addr, srv.Router()); err != nil {
		log.Fatal().Err(err).Msg("ListenAndServe error")
	}
}
