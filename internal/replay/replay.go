package replay

import (
	"context"
	"runtime"

	"shellpane/internal/buffer"
	"shellpane/internal/history"
)

const (
	// FirstBatch 首个批次尽量多处理，把大段历史一次铺好。
	FirstBatch = 1000
	// NextBatch 之后的批次保持很小，每次让出事件循环。
	NextBatch = 10
)

// Target 是回放写入的目标；*buffer.Buffer 满足该接口。
type Target interface {
	Append(text string, class buffer.Class, toTop bool) bool
	Epoch() uint64
}

// State 描述回放任务的状态。
type State int

const (
	Running State = iota
	// Done 所有 action 都已写入。
	Done
	// Cleared 回放期间发生了 Clear。
	Cleared
	// Stopped 缓冲已满，继续往顶部插入只会被立即裁掉。
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Done:
		return "done"
	case Cleared:
		return "cleared"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Replayer 从新到旧把 action 插到缓冲顶部，分批执行，可被 Clear 打断。
type Replayer struct {
	target  Target
	actions []history.Action
	next    int
	batch   int
	epoch   uint64
	state   State
	applied int
}

// New 创建回放任务；actions 按旧到新排列。
func New(target Target, actions []history.Action) *Replayer {
	r := &Replayer{
		target:  target,
		actions: actions,
		next:    len(actions) - 1,
		batch:   FirstBatch,
		epoch:   target.Epoch(),
	}
	if r.next < 0 {
		r.state = Done
	}
	return r
}

// Step 处理一个批次，返回是否还有剩余工作。
func (r *Replayer) Step() bool {
	if r.state != Running {
		return false
	}
	end := r.next - r.batch
	r.batch = NextBatch
	for ; r.next > end && r.next >= 0; r.next-- {
		// 用户在回放中途清屏：立即放弃剩余工作。
		if r.target.Epoch() != r.epoch {
			r.state = Cleared
			return false
		}
		text, class := Render(r.actions[r.next])
		r.applied++
		if !r.target.Append(text, class, true) {
			r.next--
			r.state = Stopped
			return false
		}
	}
	if r.next < 0 {
		r.state = Done
		return false
	}
	return true
}

// Run 一直执行到结束，批次之间让出调度并检查 ctx。
func (r *Replayer) Run(ctx context.Context) error {
	for r.Step() {
		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.Gosched()
	}
	return nil
}

// State 返回当前状态。
func (r *Replayer) State() State {
	return r.state
}

// Applied 返回已写入目标的 action 数。
func (r *Replayer) Applied() int {
	return r.applied
}

// Remaining 返回尚未处理的 action 数。
func (r *Replayer) Remaining() int {
	return r.next + 1
}

// Render 把 action 映射为缓冲的文本与样式。
func Render(a history.Action) (string, buffer.Class) {
	switch a.Type {
	case history.Input:
		return a.Data + "\n", buffer.Command | buffer.Keyword
	case history.Error:
		return a.Data, buffer.Error
	case history.Prompt:
		return a.Data, buffer.Prompt | buffer.Keyword
	default:
		return a.Data, buffer.Output
	}
}
