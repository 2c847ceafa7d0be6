/*
argus processes surveillance video, sampling frames and optionally
running object detection and multi-object identity tracking per the
YAML configuration.  Results are written as JSON artifacts and can be
archived to a local sqlite database.

Usage:

	argus -video lobby.mp4 [-config config.yaml] [-classmap classes.txt] [-v]
	argus -list [-config config.yaml]
*/
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/argusvision/argus"
	"github.com/argusvision/argus/pipeline"
	"github.com/argusvision/argus/store"
)

func main() {

	videoFile := flag.String("video", "", "Video file to process")
	configFile := flag.String("config", "config.yaml", "YAML configuration file")
	classFile := flag.String("classmap", "",
		"Class mapping file, blank uses the built in COCO mapping")
	listRuns := flag.Bool("list", false,
		"List archived runs instead of processing")
	verbose := flag.Bool("v", false, "Enable debug logging")

	flag.Parse()

	level := slog.LevelInfo

	if *verbose {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: level})))

	if err := run(*videoFile, *configFile, *classFile, *listRuns); err != nil {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run(videoFile, configFile, classFile string, listRuns bool) error {

	cfg, err := argus.LoadConfig(configFile)

	if err != nil {
		return err
	}

	if listRuns {
		return printRuns(cfg)
	}

	if videoFile == "" {
		flag.Usage()
		return fmt.Errorf("no video file given")
	}

	cm := argus.DefaultClassMap()

	if classFile != "" {

		cm, err = argus.LoadClassMap(classFile)

		if err != nil {
			return err
		}
	}

	p, err := pipeline.New(cfg, cm)

	if err != nil {
		return err
	}

	report, err := p.Run(videoFile)

	if err != nil {
		return err
	}

	printReport(report)

	return nil
}

// printReport writes a human readable run summary to stdout.
func printReport(r *pipeline.Report) {

	fmt.Printf("run %s (%s mode)\n", r.RunID, r.Mode)
	fmt.Printf("  video: %s, %dx%d @ %.2f fps, %d frames\n",
		filepath.Base(r.Video.Path), r.Video.Width, r.Video.Height,
		r.Video.FPS, r.Video.TotalFrames)
	fmt.Printf("  frames processed: %d\n", r.FramesProcessed)

	if r.Detection != nil {

		fmt.Printf("  detections: %d, avg confidence %.2f\n",
			r.Detection.TotalDetections, r.Detection.AvgConfidence)

		for class, n := range r.Detection.ByClass {
			fmt.Printf("    %s: %d\n", class, n)
		}
	}

	if r.Tracking != nil {

		s := r.Tracking.Summary

		fmt.Printf("  unique identities: %d\n", s.TotalUniqueIdentities)

		for class, n := range s.ByClass {
			fmt.Printf("    %s: %d\n", class, n)
		}

		fmt.Printf("  frames with tracks: %d of %d\n", s.FramesWithTracks,
			s.FramesWithTracks+s.FramesWithoutTracks)
		fmt.Printf("  avg confidence: %.2f\n", s.AvgConfidence)

		for _, traj := range r.Tracking.Trajectories {
			fmt.Printf("    %s: frames %d-%d, %d positions\n",
				traj.ObjectID, traj.FirstSeen, traj.LastSeen,
				len(traj.Positions))
		}
	}

	for _, a := range r.Artifacts {
		fmt.Printf("  wrote %s\n", a)
	}
}

// printRuns lists the most recent archived runs.
func printRuns(cfg argus.Config) error {

	if cfg.Store.DBFile == "" {
		return fmt.Errorf("no run archive configured, set store.db_file")
	}

	s, err := store.Open(cfg.Store.DBFile)

	if err != nil {
		return err
	}

	defer s.Close()

	runs, err := s.ListRuns("", 20)

	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no archived runs")
		return nil
	}

	for _, r := range runs {
		fmt.Printf("%s  %-7s  %-24s  frames=%d identities=%d\n",
			time.Unix(0, r.StartedAt).Format(time.RFC3339), r.Mode,
			filepath.Base(r.Source), r.FramesProcessed, r.UniqueIdentities)
	}

	return nil
}
