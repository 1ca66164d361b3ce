package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"robotarena-sim/internal/config"
	"robotarena-sim/internal/logging"
	"robotarena-sim/internal/scene"
	"robotarena-sim/internal/world"
)

var sceneCmd = &cobra.Command{
	Use:   "scene",
	Short: "Inspect and convert scene files",
}

var sceneCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Parse a scene and report what would be loaded",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.NewWithLevel(cmd.ErrOrStderr(), "warn")
		sc, err := scene.LoadFile(args[0], log)
		if err != nil {
			return err
		}
		cfg := config.Default()
		w := world.New(cfg.Arena.Width, cfg.Arena.Height)
		added := sc.Apply(w, cfg.Params(), log)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d obstacles, %d robots, %d loaded, %d rejected\n",
			args[0], len(sc.Obstacles), len(sc.Robots), added, sc.Len()-added)
		if added < sc.Len() {
			return fmt.Errorf("%d records rejected", sc.Len()-added)
		}
		return nil
	},
}

var sceneConvertCmd = &cobra.Command{
	Use:   "convert <in> <out>",
	Short: "Convert a scene between the text and YAML formats",
	Long:  "convert reads <in> and writes <out>; the format of each follows its extension (.yaml/.yml or text).",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := scene.LoadFile(args[0], logging.NewWithLevel(cmd.ErrOrStderr(), "warn"))
		if err != nil {
			return err
		}
		if err := scene.SaveFile(args[1], sc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", sc.Len(), args[1])
		return nil
	},
}

func init() {
	sceneCmd.AddCommand(sceneCheckCmd)
	sceneCmd.AddCommand(sceneConvertCmd)
}
