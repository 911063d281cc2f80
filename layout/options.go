package layout

import (
	"go.uber.org/zap"

	"github.com/ByLCY/lasercal/laser"
)

// BuildOptions 配置布局阶段所需的依赖。
type BuildOptions struct {
	Machine  laser.Machine // 机器限制，零值时使用 laser.DefaultMachine
	Overscan *float64      // 未在任务中声明 overscan 时使用；为空时取 DefaultOverscan
	Logger   *zap.Logger   // 为空时不输出日志
}

func (o BuildOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o BuildOptions) machine() laser.Machine {
	if o.Machine == (laser.Machine{}) {
		return laser.DefaultMachine()
	}
	return o.Machine
}

func (o BuildOptions) overscan() float64 {
	if o.Overscan == nil {
		return DefaultOverscan
	}
	return *o.Overscan
}
