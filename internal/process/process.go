package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"

	"shellpane/internal/events"
	"shellpane/internal/logger"
)

var log = logger.Named("process")

var (
	ErrNotRunning     = errors.New("process not running")
	ErrAlreadyStarted = errors.New("process already started")
)

const (
	readChunk    = 4096
	defaultCols  = 80
	defaultRows  = 24
	closeTimeout = 2 * time.Second
)

// Options 描述要启动的解释器。
type Options struct {
	Command string
	Args    []string
	Workdir string
	Env     []string
	Prompts []string
	// PTY 为 false 时使用管道，stderr 单独作为 error 事件发出。
	PTY  bool
	Cols int
	Rows int
}

// Process 是解释器子进程：stdin 写入，stdout/stderr 转成 ConsoleEvent 发到 Bus。
type Process struct {
	opts     Options
	bus      *events.Bus
	splitter PromptSplitter

	mu      sync.Mutex
	cmd     *exec.Cmd
	ptmx    *os.File
	stdin   io.WriteCloser
	started bool

	done     chan struct{}
	exitCode int
	exitErr  error
}

func New(opts Options, bus *events.Bus) *Process {
	if bus == nil {
		bus = events.NewBus(0)
	}
	return &Process{
		opts:     opts,
		bus:      bus,
		splitter: NewPromptSplitter(opts.Prompts),
		done:     make(chan struct{}),
	}
}

// Bus 返回事件总线。
func (p *Process) Bus() *events.Bus { return p.bus }

// Start 启动子进程。ctx 取消时子进程会被杀掉。
func (p *Process) Start(ctx context.Context) error {
	if strings.TrimSpace(p.opts.Command) == "" {
		return fmt.Errorf("empty command")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrAlreadyStarted
	}

	cmd := exec.CommandContext(ctx, p.opts.Command, p.opts.Args...)
	if p.opts.Workdir != "" {
		cmd.Dir = p.opts.Workdir
	}
	cmd.Env = consoleEnv(append(os.Environ(), p.opts.Env...))

	var wg sync.WaitGroup
	if p.opts.PTY {
		cols, rows := p.opts.Cols, p.opts.Rows
		if cols <= 0 {
			cols = defaultCols
		}
		if rows <= 0 {
			rows = defaultRows
		}
		ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
		if err != nil {
			return fmt.Errorf("failed to start pty: %w", err)
		}
		// 关掉回显和输出后处理：输入由界面自己回显，换行保持 "\n"。
		if _, err := term.MakeRaw(int(ptmx.Fd())); err != nil {
			log.Warnf("pty raw mode: %v", err)
		}
		p.ptmx = ptmx
		p.stdin = ptmx
		wg.Add(1)
		go p.readLoop(ctx, ptmx, events.KindOutput, &wg)
	} else {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return fmt.Errorf("stdin pipe: %w", err)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("stdout pipe: %w", err)
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return fmt.Errorf("stderr pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("start %s: %w", p.opts.Command, err)
		}
		p.stdin = stdin
		wg.Add(2)
		go p.readLoop(ctx, stdout, events.KindOutput, &wg)
		go p.readLoop(ctx, stderr, events.KindError, &wg)
	}
	p.cmd = cmd
	p.started = true
	log.WithFields(logger.Fields{"pid": cmd.Process.Pid, "pty": p.opts.PTY}).Infof("started %s %s", p.opts.Command, strings.Join(p.opts.Args, " "))

	go p.waitLoop(ctx, &wg)
	return nil
}

func (p *Process) readLoop(ctx context.Context, r io.Reader, kind events.Kind, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, readChunk)
	var carry []byte
	discard := false
	for {
		n, err := r.Read(buf)
		if n > 0 && !discard {
			data := append(carry, buf[:n]...)
			ready, rest := utf8Boundary(data)
			carry = append([]byte(nil), rest...)
			if len(ready) > 0 {
				if perr := p.emit(ctx, kind, string(ready)); perr != nil {
					// 继续读空管道，避免子进程写阻塞。
					log.WithField("kind", kind).Debugf("drop output: %v", perr)
					discard = true
				}
			}
		}
		if err != nil {
			if len(carry) > 0 && !discard {
				_ = p.emit(ctx, kind, string(carry))
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !errors.Is(err, syscall.EIO) {
				log.WithField("kind", kind).Debugf("read: %v", err)
			}
			return
		}
	}
}

func (p *Process) emit(ctx context.Context, kind events.Kind, text string) error {
	if kind != events.KindOutput {
		return p.publish(ctx, events.ConsoleEvent{Kind: kind, Text: text})
	}
	out, prompt := p.splitter.Split(text)
	if out != "" {
		if err := p.publish(ctx, events.ConsoleEvent{Kind: events.KindOutput, Text: out}); err != nil {
			return err
		}
	}
	if prompt != "" {
		return p.publish(ctx, events.ConsoleEvent{Kind: events.KindPrompt, Text: prompt})
	}
	return nil
}

func (p *Process) publish(ctx context.Context, evt events.ConsoleEvent) error {
	entry := log.WithFields(logger.Fields{"kind": evt.Kind, "bytes": len(evt.Text)})
	if evt.Kind == events.KindExit {
		entry = entry.WithField("code", evt.ExitCode)
	}
	entry.Debug("console event")
	return p.bus.Publish(ctx, evt)
}

func (p *Process) waitLoop(ctx context.Context, wg *sync.WaitGroup) {
	// 管道必须读完才能 Wait。
	wg.Wait()
	err := p.cmd.Wait()
	code := 0
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			code = ee.ExitCode()
		} else {
			code = -1
		}
	}
	p.mu.Lock()
	p.exitCode = code
	p.exitErr = err
	p.mu.Unlock()
	log.WithFields(logger.Fields{"code": code}).Infof("exited")

	evt := events.ConsoleEvent{Kind: events.KindExit, ExitCode: code, Err: err}
	if perr := p.publish(ctx, evt); perr != nil && ctx.Err() != nil {
		// ctx 已取消，界面多半也在退出；尽量送达一次。
		pubCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		_ = p.bus.Publish(pubCtx, evt)
		cancel()
	}
	close(p.done)
}

// SendInput 把一行输入写给子进程，并先发出 input 事件，保证回显排在输出之前。
func (p *Process) SendInput(ctx context.Context, line string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.Lock()
	w := p.stdin
	p.mu.Unlock()
	if w == nil || !p.Running() {
		return ErrNotRunning
	}
	if err := p.publish(ctx, events.ConsoleEvent{Kind: events.KindInput, Text: line}); err != nil {
		return err
	}
	if _, err := io.WriteString(w, line+"\n"); err != nil {
		return fmt.Errorf("write stdin: %w", err)
	}
	return nil
}

// Interrupt 给子进程发 SIGINT（pty 处于 raw 模式，写 ^C 不会产生信号）。
func (p *Process) Interrupt() error {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()
	if cmd == nil || cmd.Process == nil || !p.Running() {
		return ErrNotRunning
	}
	return cmd.Process.Signal(os.Interrupt)
}

// Resize 调整 pty 尺寸；管道模式下什么也不做。
func (p *Process) Resize(cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return nil
	}
	p.mu.Lock()
	ptmx := p.ptmx
	p.mu.Unlock()
	if ptmx == nil {
		return nil
	}
	if err := pty.Setsize(ptmx, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}); err != nil {
		return fmt.Errorf("resize pty: %w", err)
	}
	return nil
}

func (p *Process) Running() bool {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *Process) Pid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Done 在子进程退出且输出读完后关闭。
func (p *Process) Done() <-chan struct{} { return p.done }

// Wait 阻塞到子进程退出，返回退出码。
func (p *Process) Wait() (int, error) {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return -1, ErrNotRunning
	}
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode, p.exitErr
}

// Close 结束子进程并释放 pty。可重复调用。
func (p *Process) Close() error {
	p.mu.Lock()
	cmd, ptmx, stdin := p.cmd, p.ptmx, p.stdin
	p.mu.Unlock()
	if cmd == nil {
		return nil
	}
	if ptmx == nil && stdin != nil {
		_ = stdin.Close()
	}
	if p.Running() && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	select {
	case <-p.done:
	case <-time.After(closeTimeout):
		log.Warnf("process %d did not exit within %s", cmd.Process.Pid, closeTimeout)
	}
	if ptmx != nil {
		if err := ptmx.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			return err
		}
	}
	return nil
}

func consoleEnv(base []string) []string {
	env := append([]string{}, base...)
	env = setEnv(env, "TERM", "dumb")
	env = setEnv(env, "PAGER", "cat")
	env = setEnv(env, "GIT_PAGER", "cat")
	return env
}

func setEnv(env []string, key, val string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + val
			return env
		}
	}
	return append(env, prefix+val)
}
