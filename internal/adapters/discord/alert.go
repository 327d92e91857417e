package discord

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// AlertPlayer implementa service.AlertPlayer: entra a la sala privada, reproduce
// el sonido y se va. Nil o sin frames = alerta deshabilitada.
type AlertPlayer struct {
	s      *discordgo.Session
	frames [][]byte
	log    *slog.Logger

	mu   sync.Mutex
	busy map[string]struct{}
}

// LoadAlertPlayer lee un archivo DCA (int16 LE con el largo + frame opus, repetido).
func LoadAlertPlayer(s *discordgo.Session, path string, log *slog.Logger) (*AlertPlayer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	frames, err := readDCA(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &AlertPlayer{s: s, frames: frames, log: log, busy: map[string]struct{}{}}, nil
}

func readDCA(r io.Reader) ([][]byte, error) {
	var frames [][]byte
	for {
		var n int16
		err := binary.Read(r, binary.LittleEndian, &n)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, fmt.Errorf("bad frame length %d", n)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		frames = append(frames, buf)
	}
	if len(frames) == 0 {
		return nil, errors.New("no opus frames")
	}
	return frames, nil
}

// PlayAlert no bloquea. Si ya hay una alerta sonando en el guild se descarta.
func (p *AlertPlayer) PlayAlert(guildID, channelID string) {
	if p == nil || len(p.frames) == 0 {
		return
	}
	if !p.acquire(guildID) {
		return
	}
	go func() {
		defer p.release(guildID)
		if err := p.play(guildID, channelID); err != nil {
			p.log.Warn("alert playback failed", "guild", guildID, "channel", channelID, "err", err)
		}
	}()
}

func (p *AlertPlayer) acquire(guildID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.busy[guildID]; ok {
		return false
	}
	p.busy[guildID] = struct{}{}
	return true
}

func (p *AlertPlayer) release(guildID string) {
	p.mu.Lock()
	delete(p.busy, guildID)
	p.mu.Unlock()
}

func (p *AlertPlayer) play(guildID, channelID string) error {
	vc, err := p.s.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return err
	}
	defer func() { _ = vc.Disconnect() }()

	// margen para que el handshake de voz termine
	time.Sleep(250 * time.Millisecond)
	if err := vc.Speaking(true); err != nil {
		return err
	}
	for _, f := range p.frames {
		vc.OpusSend <- f
	}
	_ = vc.Speaking(false)
	time.Sleep(250 * time.Millisecond)
	return nil
}
