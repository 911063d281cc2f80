// Package config 读取激光机配置文件（YAML 或 HCL），并补齐默认值。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"gopkg.in/yaml.v3"

	"github.com/ByLCY/lasercal/laser"
)

const (
	DefaultPrecision = 3
	DefaultOverscan  = 0.1
)

// Profile 描述一台激光机以及生成 G-code 时的偏好。
type Profile struct {
	Name        string   `yaml:"name" hcl:"name,optional"`
	MaxPower    float64  `yaml:"max_power" hcl:"max_power,optional"`       // W
	SMax        float64  `yaml:"s_max" hcl:"s_max,optional"`               // 控制器 S 最大值，例如 GRBL 的 $30
	MaxVelocity float64  `yaml:"max_velocity" hcl:"max_velocity,optional"` // mm/min，0 表示不限制
	LaserMode   string   `yaml:"laser_mode" hcl:"laser_mode,optional"`     // M3 / M4
	Precision   int      `yaml:"precision" hcl:"precision,optional"`       // 坐标小数位
	Overscan    float64  `yaml:"overscan" hcl:"overscan,optional"`         // 光栅超程，占格宽比例
	Preamble    []string `yaml:"preamble" hcl:"preamble,optional"`         // 覆盖默认起始代码
	Postamble   []string `yaml:"postamble" hcl:"postamble,optional"`       // 覆盖默认结束代码
}

// Default 返回未提供配置文件时使用的配置。
func Default() Profile {
	return Profile{
		Name:      "default",
		MaxPower:  laser.DefaultMaxPower,
		SMax:      laser.DefaultSMax,
		LaserMode: laser.ModeDynamic,
		Precision: DefaultPrecision,
		Overscan:  DefaultOverscan,
	}
}

// Load 根据扩展名选择解析器：.yaml/.yml 使用 yaml.v3，.hcl 使用 hclsimple。
// 解析前先填入默认值，文件中未出现的键保持默认，显式写出的 0 原样保留。
func Load(path string) (Profile, error) {
	p := Default()
	p.Name = ""
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return Profile{}, fmt.Errorf("读取配置 %s 失败: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &p); err != nil {
			return Profile{}, fmt.Errorf("解析 YAML 配置 %s 失败: %w", path, err)
		}
	case ".hcl":
		if err := hclsimple.DecodeFile(path, nil, &p); err != nil {
			return Profile{}, fmt.Errorf("解析 HCL 配置 %s 失败: %w", path, err)
		}
	default:
		return Profile{}, fmt.Errorf("不支持的配置格式: %s（仅支持 .yaml/.yml/.hcl）", path)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	p.LaserMode = strings.ToUpper(p.LaserMode)
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("配置 %s 无效: %w", path, err)
	}
	return p, nil
}

// Validate 检查配置取值范围。
func (p Profile) Validate() error {
	if err := p.Machine().Validate(); err != nil {
		return err
	}
	if p.Precision < 0 || p.Precision > 6 {
		return fmt.Errorf("precision %d 超出范围 0-6", p.Precision)
	}
	if p.Overscan < 0 {
		return fmt.Errorf("overscan %g 不能为负数", p.Overscan)
	}
	return nil
}

// Machine 提取激光机限制。
func (p Profile) Machine() laser.Machine {
	return laser.Machine{
		MaxPower:    p.MaxPower,
		SMax:        p.SMax,
		MaxVelocity: p.MaxVelocity,
		LaserMode:   p.LaserMode,
	}
}
