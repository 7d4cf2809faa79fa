package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/jscience/grid/pkg/client"
	"github.com/jscience/grid/pkg/log"
	"github.com/jscience/grid/pkg/tasks"
	"github.com/spf13/cobra"
)

// Characters from outside the set to inside.
const shades = " .:-=+*#%@"

var runMandelbrotCmd = &cobra.Command{
	Use:   "mandelbrot",
	Short: "Render the Mandelbrot set",
	Run: func(cmd *cobra.Command, args []string) {
		view := tasks.MandelbrotSlice{}
		view.Width, _ = cmd.Flags().GetInt32("width")
		view.Height, _ = cmd.Flags().GetInt32("height")
		view.MaxIter, _ = cmd.Flags().GetInt32("iterations")
		view.XMin, _ = cmd.Flags().GetFloat64("xmin")
		view.XMax, _ = cmd.Flags().GetFloat64("xmax")
		view.YMin, _ = cmd.Flags().GetFloat64("ymin")
		view.YMax, _ = cmd.Flags().GetFloat64("ymax")

		job := client.NewMandelbrotJob(view, configData.Batches)
		report := runJob(cmd, job)

		out := bufio.NewWriter(os.Stdout)
		defer out.Flush()

		if path, _ := cmd.Flags().GetString("pgm"); path != "" {
			if err := writePGM(path, job); err != nil {
				log.Fatal(err)
			}
		} else {
			for y := 0; y < int(view.Height); y++ {
				for x := 0; x < int(view.Width); x++ {
					n := job.At(x, y)
					out.WriteByte(shades[int(n)*(len(shades)-1)/int(view.MaxIter)])
				}
				out.WriteByte('\n')
			}
		}

		fmt.Fprintf(out, "%d remote, %d local\n", report.Remote(), report.Local())
		printReport(cmd, report)
	},
}

// Writes the escape counts as a binary greymap.
func writePGM(path string, job *client.MandelbrotJob) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "P5\n%d %d\n255\n", job.View.Width, job.View.Height)
	for _, n := range job.Counts {
		w.WriteByte(byte(int(n) * 255 / int(job.View.MaxIter)))
	}
	return w.Flush()
}

func init() {
	runMandelbrotCmd.Flags().Int32("width", 78, "Image width")
	runMandelbrotCmd.Flags().Int32("height", 32, "Image height")
	runMandelbrotCmd.Flags().Int32("iterations", 256, "Iteration limit")
	runMandelbrotCmd.Flags().Float64("xmin", -2.2, "Left edge")
	runMandelbrotCmd.Flags().Float64("xmax", 0.8, "Right edge")
	runMandelbrotCmd.Flags().Float64("ymin", -1.2, "Bottom edge")
	runMandelbrotCmd.Flags().Float64("ymax", 1.2, "Top edge")
	runMandelbrotCmd.Flags().String("pgm", "", "Write a PGM image to this path instead of text")
	runCmd.AddCommand(runMandelbrotCmd)
}
