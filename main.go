package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ByLCY/lasercal/config"
)

var (
	verbose     bool
	profilePath string

	logger  *zap.Logger
	profile config.Profile
)

var rootCmd = &cobra.Command{
	Use:   "lasercal",
	Short: "生成激光雕刻参数校准图案的 G-code",
	Long: `lasercal 根据功率、速度、遍数与 LPI 生成校准用的 G-code：

  le-field      每个单元格对应一组 LE（功率/速度/遍数）
  passes-field  每行 LEV 相同，逐列增加遍数
  text          用单线字形刻写标注

任务可以写在 .lasercal 文件中（lasercal run），也可以直接用命令行参数生成单个图案。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("初始化日志失败: %w", err)
		}

		profile = config.Default()
		if profilePath != "" {
			if profile, err = config.Load(profilePath); err != nil {
				return err
			}
			logger.Debug("已加载机器配置",
				zap.String("profile", profile.Name),
				zap.Float64("max_power", profile.MaxPower),
				zap.Float64("s_max", profile.SMax),
				zap.String("laser_mode", profile.LaserMode),
			)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")
	rootCmd.PersistentFlags().StringVarP(&profilePath, "profile", "p", "", "机器配置文件（.yaml/.yml/.hcl）")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(fieldCmd)
	rootCmd.AddCommand(passesCmd)
	rootCmd.AddCommand(textCmd)
	rootCmd.AddCommand(levCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
