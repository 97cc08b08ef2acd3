package capture

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"
)

// CameraPosition distinguishes the two selectable cameras.
type CameraPosition string

const (
	PositionFront CameraPosition = "front"
	PositionRear  CameraPosition = "rear"
)

// TorchMode cycles off → auto → on → off.
type TorchMode string

const (
	TorchOff  TorchMode = "off"
	TorchAuto TorchMode = "auto"
	TorchOn   TorchMode = "on"
)

// Next returns the following mode in the cycle.
func (m TorchMode) Next() TorchMode {
	switch m {
	case TorchOff:
		return TorchAuto
	case TorchAuto:
		return TorchOn
	default:
		return TorchOff
	}
}

// Device describes one capture device.
type Device struct {
	ID       string
	Name     string
	Position CameraPosition
	HasTorch bool
}

// RecordingResult is the completion signal for one file write.
type RecordingResult struct {
	Path string
	Err  error
}

// Pipeline is a continuous camera capture pipeline with an attachable
// movie-file sink.
type Pipeline interface {
	// SwitchDevice atomically swaps the active input while running.
	SwitchDevice(ctx context.Context, dev Device) error
	// StartRecording begins writing to dst.
	StartRecording(ctx context.Context, dst string) error
	// StopRecording finalizes the write; the result arrives on Finished.
	StopRecording(ctx context.Context) error
	// SetTorch applies a torch mode to the active device.
	SetTorch(ctx context.Context, mode TorchMode) error
	// Stop tears the pipeline down.
	Stop(ctx context.Context) error
	// Finished delivers one result per start/stop pair.
	Finished() <-chan RecordingResult
}

// AudioRecorder writes microphone input to a compressed audio file. Close
// releases the device and ends the Finished stream; Stop only finishes the
// current take.
type AudioRecorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Close(ctx context.Context) error
	Finished() <-chan RecordingResult
}

// Backend abstracts the platform capture stack: device enumeration and
// pipeline/recorder construction.
type Backend interface {
	Cameras(ctx context.Context) ([]Device, error)
	Microphones(ctx context.Context) ([]Device, error)
	OpenPipeline(ctx context.Context, dev Device) (Pipeline, error)
	OpenAudioRecorder(ctx context.Context, dev Device, dst string) (AudioRecorder, error)
}

// FFmpegBackend drives capture through ffmpeg device demuxers (v4l2/alsa on
// Linux, avfoundation on macOS). Devices come from configuration; there is
// no portable runtime enumeration worth trusting.
type FFmpegBackend struct {
	ffmpegPath  string
	videoFormat string
	audioFormat string
	cameras     []Device
	microphones []Device
	log         zerolog.Logger
}

func NewFFmpegBackend(ffmpegPath, videoFormat, audioFormat string, cameras, microphones []Device, log zerolog.Logger) *FFmpegBackend {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegBackend{
		ffmpegPath:  ffmpegPath,
		videoFormat: videoFormat,
		audioFormat: audioFormat,
		cameras:     cameras,
		microphones: microphones,
		log:         log,
	}
}

func (b *FFmpegBackend) Cameras(ctx context.Context) ([]Device, error) {
	return b.cameras, nil
}

func (b *FFmpegBackend) Microphones(ctx context.Context) ([]Device, error) {
	return b.microphones, nil
}

func (b *FFmpegBackend) OpenPipeline(ctx context.Context, dev Device) (Pipeline, error) {
	if b.videoFormat != "" && dev.ID != "" {
		// A device that cannot be opened fails configuration now rather
		// than on the first recording.
		if _, err := os.Stat(dev.ID); err != nil && b.videoFormat == "v4l2" {
			return nil, fmt.Errorf("%w: %s: %v", ErrDeviceConfig, dev.ID, err)
		}
	}
	return &ffmpegPipeline{
		backend:  b,
		device:   dev,
		finished: make(chan RecordingResult, 4),
		log:      b.log.With().Str("device", dev.ID).Logger(),
	}, nil
}

func (b *FFmpegBackend) OpenAudioRecorder(ctx context.Context, dev Device, dst string) (AudioRecorder, error) {
	return &ffmpegAudioRecorder{
		backend:  b,
		device:   dev,
		dst:      dst,
		finished: make(chan RecordingResult, 4),
		log:      b.log.With().Str("device", dev.ID).Logger(),
	}, nil
}

// ffmpegPipeline runs one ffmpeg process per recording. Between
// recordings the pipeline is "running" in the sense that the device is
// reserved and switchable.
type ffmpegPipeline struct {
	backend *FFmpegBackend
	log     zerolog.Logger

	mu        sync.Mutex
	device    Device
	cmd       *exec.Cmd
	quit      interface{ Write([]byte) (int, error) }
	dst       string
	stopped   bool
	recording bool

	finished chan RecordingResult
}

func (p *ffmpegPipeline) SwitchDevice(ctx context.Context, dev Device) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrInvalidOperation
	}
	if p.recording {
		// Swapping the input mid-file would splice two devices into one
		// clip; the session layer never asks for this.
		return fmt.Errorf("%w: cannot switch device while recording", ErrInvalidOperation)
	}
	p.device = dev
	return nil
}

func (p *ffmpegPipeline) StartRecording(ctx context.Context, dst string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrInvalidOperation
	}
	if p.recording {
		return fmt.Errorf("%w: already recording", ErrInvalidOperation)
	}

	args := []string{"-y"}
	if p.backend.videoFormat != "" {
		args = append(args, "-f", p.backend.videoFormat)
	}
	args = append(args, "-i", p.device.ID,
		"-c:v", "libx264", "-preset", "ultrafast",
		"-movflags", "+faststart",
		dst,
	)

	cmd := exec.Command(p.backend.ffmpegPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceConfig, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceConfig, err)
	}

	p.cmd = cmd
	p.quit = stdin
	p.dst = dst
	p.recording = true

	go func() {
		err := cmd.Wait()
		_ = stdin.Close()
		p.mu.Lock()
		dst := p.dst
		p.recording = false
		p.cmd = nil
		p.quit = nil
		stopped := p.stopped
		p.mu.Unlock()
		if err != nil {
			// ffmpeg exits non-zero on the quit keypress as well; a
			// playable file at dst counts as success.
			if _, statErr := os.Stat(dst); statErr != nil {
				p.finished <- RecordingResult{Err: fmt.Errorf("recording failed: %w", err)}
			} else {
				p.finished <- RecordingResult{Path: dst}
			}
		} else {
			p.finished <- RecordingResult{Path: dst}
		}
		// Stop arrived while this take was in flight; the final result is
		// out, close the stream.
		if stopped {
			close(p.finished)
		}
	}()

	return nil
}

func (p *ffmpegPipeline) StopRecording(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.recording || p.cmd == nil {
		return nil
	}
	if p.quit != nil {
		// "q" asks ffmpeg to finish the file; falling back to a signal
		// would truncate the index.
		if _, err := p.quit.Write([]byte("q")); err != nil && p.cmd.Process != nil {
			return p.cmd.Process.Signal(os.Interrupt)
		}
	}
	return nil
}

func (p *ffmpegPipeline) SetTorch(ctx context.Context, mode TorchMode) error {
	// No portable torch control exists for ffmpeg device demuxers; the
	// mode is tracked by the session and surfaced to clients.
	p.log.Debug().Str("mode", string(mode)).Msg("torch mode set")
	return nil
}

func (p *ffmpegPipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil
	}
	p.stopped = true
	if p.cmd != nil && p.cmd.Process != nil {
		// The Wait goroutine delivers the final result and closes finished.
		return p.cmd.Process.Signal(os.Interrupt)
	}
	close(p.finished)
	return nil
}

func (p *ffmpegPipeline) Finished() <-chan RecordingResult {
	return p.finished
}

// ffmpegAudioRecorder records microphone input to an AAC file.
type ffmpegAudioRecorder struct {
	backend *FFmpegBackend
	log     zerolog.Logger

	mu     sync.Mutex
	device Device
	dst    string
	cmd    *exec.Cmd
	quit   interface{ Write([]byte) (int, error) }
	closed bool

	finished chan RecordingResult
}

func (r *ffmpegAudioRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrSessionTornDown
	}
	if r.cmd != nil {
		return fmt.Errorf("%w: already recording", ErrInvalidOperation)
	}

	args := []string{"-y"}
	if r.backend.audioFormat != "" {
		args = append(args, "-f", r.backend.audioFormat)
	}
	args = append(args, "-i", r.device.ID,
		"-c:a", "aac", "-ar", "44100", "-ac", "2",
		r.dst,
	)

	cmd := exec.Command(r.backend.ffmpegPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceConfig, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceConfig, err)
	}
	r.cmd = cmd
	r.quit = stdin

	go func() {
		err := cmd.Wait()
		r.mu.Lock()
		dst := r.dst
		r.cmd = nil
		r.quit = nil
		closed := r.closed
		r.mu.Unlock()
		if err != nil {
			if _, statErr := os.Stat(dst); statErr != nil {
				r.finished <- RecordingResult{Err: fmt.Errorf("audio recording failed: %w", err)}
			} else {
				r.finished <- RecordingResult{Path: dst}
			}
		} else {
			r.finished <- RecordingResult{Path: dst}
		}
		if closed {
			close(r.finished)
		}
	}()
	return nil
}

func (r *ffmpegAudioRecorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd == nil {
		return nil
	}
	if r.quit != nil {
		if _, err := r.quit.Write([]byte("q")); err != nil && r.cmd.Process != nil {
			return r.cmd.Process.Signal(os.Interrupt)
		}
	}
	return nil
}

func (r *ffmpegAudioRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.cmd != nil && r.cmd.Process != nil {
		// The Wait goroutine delivers the final result and closes finished.
		return r.cmd.Process.Signal(os.Interrupt)
	}
	close(r.finished)
	return nil
}

func (r *ffmpegAudioRecorder) Finished() <-chan RecordingResult {
	return r.finished
}
