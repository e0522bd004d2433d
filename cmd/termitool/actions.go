package main

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/KhanhRomVN/termi-tool/android"
	"github.com/KhanhRomVN/termi-tool/config"
	"github.com/KhanhRomVN/termi-tool/dataset"
	"github.com/KhanhRomVN/termi-tool/devtools"
	"github.com/KhanhRomVN/termi-tool/hfhub"
	"github.com/KhanhRomVN/termi-tool/menu"
	"github.com/KhanhRomVN/termi-tool/reqlog"
	"github.com/KhanhRomVN/termi-tool/roboflow"
	"github.com/KhanhRomVN/termi-tool/sshkey"
	"github.com/KhanhRomVN/termi-tool/sysreport"
	"github.com/KhanhRomVN/termi-tool/vision"
)

// buildMenu assembles the dashboard tree. Every leaf prompts for its inputs
// through the session and reports its outcome there.
func buildMenu(cfg config.Config) *menu.Item {
	return menu.Sub("TERMINAL TOOL DASHBOARD",
		menu.Sub("Data & AI Utilities",
			menu.Sub("Vision Tool",
				menu.Sub("Roboflow Tools",
					menu.Leaf("List Projects", listRoboflowProjects(cfg)),
					menu.Leaf("Upload Model", uploadRoboflowModel(cfg)),
				),
				menu.Sub("Video Tools",
					menu.Leaf("Video to Frames", videoToFrames(cfg)),
				),
			),
			menu.Sub("Dataset Tools",
				menu.Sub("Format Conversion",
					menu.Leaf("COCO to YOLO", cocoToYOLO()),
					menu.Leaf("COCO to TFRecord", cocoToTFRecord()),
				),
			),
			menu.Sub("AI Development",
				menu.Sub("Hugging Face Tools",
					menu.Leaf("Search Models", searchHubModels(cfg)),
					menu.Leaf("Model Details", hubModelDetails(cfg)),
					menu.Leaf("Clone Model Repository", cloneHubRepo(cfg)),
				),
			),
		),
		menu.Sub("Mobile Development",
			menu.Sub("Android Tools",
				menu.Sub("ADB Management",
					menu.Leaf("Connect ADB WiFi", connectADBWiFi(cfg)),
					menu.Leaf("List ADB Devices", listADBDevices(cfg)),
					menu.Leaf("Remove ADB Device", removeADBDevice(cfg)),
					menu.Leaf("Uninstall App", uninstallAndroidApp(cfg)),
				),
				menu.Sub("Build Tools",
					menu.Leaf("Generate AAB", generateAAB()),
					menu.Leaf("Clean Project", cleanGradleProject()),
				),
			),
		),
		menu.Sub("System Tools",
			menu.Sub("Performance Monitor",
				menu.Leaf("RAM Usage", memorySnapshot()),
				menu.Leaf("Storage Analysis", diskUsage()),
				menu.Leaf("Directory Sizes", scanDirectory()),
			),
			menu.Sub("Network Tools",
				menu.Leaf("Request Logger", requestLogger(cfg)),
			),
			menu.Sub("SSH Management",
				menu.Leaf("Generate SSH Key", generateSSHKey()),
				menu.Leaf("View Public Key", viewPublicKey()),
				menu.Leaf("List SSH Keys", listSSHKeys()),
				menu.Leaf("Remove SSH Key", removeSSHKey()),
			),
		),
		menu.Sub("Developer Setup",
			menu.Sub("Environment Setup",
				menu.Leaf("Install Dev Tools", installDevTools()),
			),
			menu.Sub("Application Management",
				menu.Leaf("Uninstall Apps", uninstallApp()),
			),
		),
	)
}

// Roboflow actions.

func listRoboflowProjects(cfg config.Config) menu.Action {
	return func(s *menu.Session) error {
		client := roboflow.NewClient(cfg.Roboflow.BaseURL, cfg.Roboflow.APIKey, cfg.Roboflow.Workspace)
		projects, err := client.ListProjects(context.Background())
		if err != nil {
			return err
		}

		if len(projects) == 0 {
			s.Printf("No projects in workspace %q.\n", cfg.Roboflow.Workspace)
			return nil
		}
		for _, p := range projects {
			s.Printf("%-32s %-18s %6d images\n", p.ID, p.Type, p.Images)
		}
		return nil
	}
}

func uploadRoboflowModel(cfg config.Config) menu.Action {
	return func(s *menu.Session) error {
		project, err := s.Prompt("Project ID")
		if err != nil {
			return err
		}
		version, err := s.Prompt("Version")
		if err != nil {
			return err
		}
		modelType, err := s.PromptDefault("Model type", "yolov8")
		if err != nil {
			return err
		}
		weights, err := s.PromptPath("Weights file")
		if err != nil {
			return err
		}

		client := roboflow.NewClient(cfg.Roboflow.BaseURL, cfg.Roboflow.APIKey, cfg.Roboflow.Workspace)
		if err := client.UploadModel(context.Background(), project, version, modelType, weights); err != nil {
			return err
		}
		s.Printf("Uploaded %s to %s/%s.\n", filepath.Base(weights), project, version)
		return nil
	}
}

// Vision actions.

func videoToFrames(cfg config.Config) menu.Action {
	return func(s *menu.Session) error {
		video, err := s.PromptPath("Video file")
		if err != nil {
			return err
		}
		outDir, err := s.PromptPath("Output directory")
		if err != nil {
			return err
		}
		interval, err := s.PromptInt("Keep every Nth frame", 30)
		if err != nil {
			return err
		}

		ex := vision.NewExtractor(cfg.Tools.FFmpeg, cfg.Tools.FFprobe)
		info, err := ex.Probe(context.Background(), video)
		if err != nil {
			return err
		}
		s.Printf("Source: %dx%d @ %.2f fps\n", info.Width, info.Height, info.FrameRate)

		saved, err := ex.ExtractFrames(context.Background(), video, outDir, interval)
		if err != nil {
			return err
		}
		s.Printf("Saved %d frames to %s.\n", saved, outDir)

		longest, err := s.PromptInt("Resize longer side to (0 keeps size)", 0)
		if err != nil {
			return err
		}
		if longest > 0 {
			resized, err := vision.ResizeFrames(outDir, longest)
			if err != nil {
				return err
			}
			s.Printf("Resized %d frames.\n", resized)
		}
		return nil
	}
}

// Dataset actions.

func cocoToYOLO() menu.Action {
	return func(s *menu.Session) error {
		src, err := s.PromptPath("Dataset root (with train/valid/test)")
		if err != nil {
			return err
		}
		dst, err := s.PromptPath("Destination root")
		if err != nil {
			return err
		}

		report, err := dataset.Convert(src, dst)
		if err != nil {
			return err
		}

		s.Printf("Run %s finished in %s.\n", report.RunID, report.Duration.Round(time.Millisecond))
		s.Printf("Classes: %d\n", report.Classes)
		for _, split := range report.Splits {
			s.Printf("  %-6s %4d images, %4d objects\n", split.Split, split.Images, split.Objects)
		}
		s.Printf("Output: %s\n", report.OutDir)
		return nil
	}
}

func cocoToTFRecord() menu.Action {
	return func(s *menu.Session) error {
		src, err := s.PromptPath("Dataset root (with train split)")
		if err != nil {
			return err
		}
		out, err := s.PromptPath("Output directory")
		if err != nil {
			return err
		}
		shards, err := s.PromptInt("Number of shards", 1)
		if err != nil {
			return err
		}

		if err := dataset.WriteTFRecords(src, out, shards); err != nil {
			return err
		}
		s.Printf("TFRecords and label map written to %s.\n", out)
		return nil
	}
}

// Hugging Face hub actions.

func searchHubModels(cfg config.Config) menu.Action {
	return func(s *menu.Session) error {
		query, err := s.PromptDefault("Search query", "")
		if err != nil {
			return err
		}
		author, err := s.PromptDefault("Author filter", "")
		if err != nil {
			return err
		}
		limit, err := s.PromptInt("Max results", 20)
		if err != nil {
			return err
		}

		client := hfhub.NewClient(cfg.HuggingFace.BaseURL, cfg.HuggingFace.Token, cfg.Tools.Git)
		models, err := client.SearchModels(context.Background(), query, author, limit)
		if err != nil {
			return err
		}

		if len(models) == 0 {
			s.Printf("No models found.\n")
			return nil
		}
		for _, m := range models {
			s.Printf("%-44s %-22s %9d downloads %6d likes\n", m.ID, m.PipelineTag, m.Downloads, m.Likes)
		}
		return nil
	}
}

func hubModelDetails(cfg config.Config) menu.Action {
	return func(s *menu.Session) error {
		repo, err := s.Prompt("Repository (owner/name)")
		if err != nil {
			return err
		}

		client := hfhub.NewClient(cfg.HuggingFace.BaseURL, cfg.HuggingFace.Token, cfg.Tools.Git)
		info, err := client.ModelInfo(context.Background(), repo)
		if err != nil {
			return err
		}

		s.Printf("Repository:    %s\n", info.ID)
		s.Printf("Revision:      %s\n", info.SHA)
		s.Printf("Last modified: %s\n", info.LastModified)
		if info.PipelineTag != "" {
			s.Printf("Pipeline:      %s\n", info.PipelineTag)
		}
		s.Printf("Downloads:     %d\n", info.Downloads)
		s.Printf("Likes:         %d\n", info.Likes)
		if len(info.Tags) > 0 {
			s.Printf("Tags:          %s\n", strings.Join(info.Tags, ", "))
		}
		if len(info.Siblings) > 0 {
			s.Printf("Files:\n")
			for _, f := range info.Siblings {
				s.Printf("  %s\n", f.FileName)
			}
		}
		return nil
	}
}

func cloneHubRepo(cfg config.Config) menu.Action {
	return func(s *menu.Session) error {
		repo, err := s.Prompt("Repository (owner/name)")
		if err != nil {
			return err
		}
		dest, err := s.PromptPath("Clone into directory")
		if err != nil {
			return err
		}
		branch, err := s.PromptDefault("Branch", "")
		if err != nil {
			return err
		}

		client := hfhub.NewClient(cfg.HuggingFace.BaseURL, cfg.HuggingFace.Token, cfg.Tools.Git)
		s.Printf("Cloning %s, this may take a while...\n", repo)
		target, err := client.CloneRepo(context.Background(), repo, dest, branch)
		if err != nil {
			return err
		}
		s.Printf("Cloned into %s.\n", target)
		return nil
	}
}

// Android actions.

func connectADBWiFi(cfg config.Config) menu.Action {
	return func(s *menu.Session) error {
		ip, err := s.Prompt("Device IP")
		if err != nil {
			return err
		}
		port, err := s.PromptDefault("Port", "5555")
		if err != nil {
			return err
		}

		msg, err := android.NewADB(cfg.Tools.ADB).ConnectWiFi(context.Background(), ip, port)
		if err != nil {
			return err
		}
		s.Printf("%s\n", msg)
		return nil
	}
}

func listADBDevices(cfg config.Config) menu.Action {
	return func(s *menu.Session) error {
		devices, err := android.NewADB(cfg.Tools.ADB).Devices(context.Background())
		if err != nil {
			return err
		}

		if len(devices) == 0 {
			s.Printf("No devices connected.\n")
			return nil
		}
		for _, d := range devices {
			s.Printf("%-26s %-10s %s\n", d.ID, d.State, d.Description)
		}
		return nil
	}
}

func removeADBDevice(cfg config.Config) menu.Action {
	return func(s *menu.Session) error {
		id, err := s.Prompt("Device ID")
		if err != nil {
			return err
		}

		msg, err := android.NewADB(cfg.Tools.ADB).Disconnect(context.Background(), id)
		if err != nil {
			return err
		}
		s.Printf("%s\n", msg)
		return nil
	}
}

func uninstallAndroidApp(cfg config.Config) menu.Action {
	return func(s *menu.Session) error {
		pkg, err := s.Prompt("Package name")
		if err != nil {
			return err
		}
		device, err := s.PromptDefault("Device ID (empty for the only device)", "")
		if err != nil {
			return err
		}

		if err := android.NewADB(cfg.Tools.ADB).Uninstall(context.Background(), pkg, device); err != nil {
			return err
		}
		s.Printf("Uninstalled %s.\n", pkg)
		return nil
	}
}

func generateAAB() menu.Action {
	return func(s *menu.Session) error {
		project, err := s.PromptPath("Android project root")
		if err != nil {
			return err
		}
		buildType, err := s.PromptDefault("Build type (release/debug)", android.BuildRelease)
		if err != nil {
			return err
		}
		outPath, err := s.PromptDefault("Move bundle to (empty keeps it in place)", "")
		if err != nil {
			return err
		}

		s.Printf("Building %s bundle, this may take a while...\n", buildType)
		aab, err := android.NewGradle().BuildAAB(context.Background(), project, buildType, outPath)
		if err != nil {
			return err
		}
		s.Printf("Bundle written to %s.\n", aab)
		return nil
	}
}

func cleanGradleProject() menu.Action {
	return func(s *menu.Session) error {
		project, err := s.PromptPath("Android project root")
		if err != nil {
			return err
		}

		if err := android.NewGradle().Clean(context.Background(), project); err != nil {
			return err
		}
		s.Printf("Project cleaned.\n")
		return nil
	}
}

// System actions.

func memorySnapshot() menu.Action {
	return func(s *menu.Session) error {
		m, err := sysreport.MemInfo()
		if err != nil {
			return err
		}

		s.Printf("RAM total:     %s\n", sysreport.FormatBytes(m.Total))
		s.Printf("RAM used:      %s (%.1f%%)\n", sysreport.FormatBytes(m.Used), m.Percent)
		s.Printf("RAM available: %s\n", sysreport.FormatBytes(m.Available))
		s.Printf("RAM free:      %s\n", sysreport.FormatBytes(m.Free))
		s.Printf("Swap total:    %s\n", sysreport.FormatBytes(m.SwapTotal))
		s.Printf("Swap free:     %s\n", sysreport.FormatBytes(m.SwapFree))
		return nil
	}
}

func diskUsage() menu.Action {
	return func(s *menu.Session) error {
		path, err := s.PromptDefault("Filesystem path", "/")
		if err != nil {
			return err
		}

		stats, err := sysreport.DiskUsage(path)
		if err != nil {
			return err
		}

		s.Printf("Filesystem of %s\n", stats.Path)
		s.Printf("  Total: %s\n", sysreport.FormatBytes(stats.Total))
		s.Printf("  Used:  %s (%.1f%%)\n", sysreport.FormatBytes(stats.Used), stats.Percent)
		s.Printf("  Free:  %s\n", sysreport.FormatBytes(stats.Free))
		return nil
	}
}

func scanDirectory() menu.Action {
	return func(s *menu.Session) error {
		dir, err := s.PromptPath("Directory to scan")
		if err != nil {
			return err
		}
		topN, err := s.PromptInt("Show top", 10)
		if err != nil {
			return err
		}

		usages, err := sysreport.ScanDir(dir, topN)
		if err != nil {
			return err
		}

		for _, u := range usages {
			marker := " "
			if u.Dir {
				marker = "/"
			}
			s.Printf("%12s  %s%s\n", sysreport.FormatBytes(uint64(u.Size)), u.Name, marker)
		}
		return nil
	}
}

func requestLogger(cfg config.Config) menu.Action {
	return func(s *menu.Session) error {
		sink := reqlog.New(s.Writer())
		if err := sink.Start(cfg.ReqLog.ListenAddr); err != nil {
			return err
		}

		s.Printf("Listening on http://%s\n", sink.Addr())
		if err := s.WaitEnter("Press Enter to stop capturing..."); err != nil {
			_ = sink.Stop("")
			return err
		}

		n := len(sink.Entries())
		if n == 0 {
			s.Printf("No requests captured.\n")
			return sink.Stop("")
		}

		outFile, err := s.PromptPath("Save captured requests to")
		if err != nil {
			_ = sink.Stop("")
			return err
		}
		if err := sink.Stop(outFile); err != nil {
			return err
		}
		s.Printf("Saved %d request(s) to %s.\n", n, outFile)
		return nil
	}
}

// SSH actions.

func generateSSHKey() menu.Action {
	return func(s *menu.Session) error {
		m, err := sshkey.NewManager("")
		if err != nil {
			return err
		}

		name, err := s.Prompt("Key name")
		if err != nil {
			return err
		}
		keyType, err := s.PromptDefault("Key type (ed25519/rsa)", sshkey.TypeED25519)
		if err != nil {
			return err
		}
		comment, err := s.PromptDefault("Comment", "")
		if err != nil {
			return err
		}

		path, err := m.Generate(name, keyType, comment)
		if err != nil {
			return err
		}
		s.Printf("Key written to %s.\n", path)

		if line, err := m.PublicKey(name); err == nil {
			s.Printf("Public key:\n%s\n", line)
		}
		return nil
	}
}

func viewPublicKey() menu.Action {
	return func(s *menu.Session) error {
		m, err := sshkey.NewManager("")
		if err != nil {
			return err
		}

		name, err := s.Prompt("Key name")
		if err != nil {
			return err
		}
		line, err := m.PublicKey(name)
		if err != nil {
			return err
		}
		s.Printf("%s\n", line)
		return nil
	}
}

func listSSHKeys() menu.Action {
	return func(s *menu.Session) error {
		m, err := sshkey.NewManager("")
		if err != nil {
			return err
		}

		keys, err := m.List()
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			s.Printf("No keys in %s.\n", m.Dir)
			return nil
		}
		for _, k := range keys {
			s.Printf("%-24s %-12s %s\n", k.Name, k.Type, k.Comment)
		}
		return nil
	}
}

func removeSSHKey() menu.Action {
	return func(s *menu.Session) error {
		m, err := sshkey.NewManager("")
		if err != nil {
			return err
		}

		name, err := s.Prompt("Key name")
		if err != nil {
			return err
		}
		ok, err := s.Confirm("Delete both halves of " + name + "?")
		if err != nil {
			return err
		}
		if !ok {
			return menu.ErrAborted
		}

		removed, err := m.Remove(name)
		if err != nil {
			return err
		}
		s.Printf("Removed %s.\n", strings.Join(removed, " and "))
		return nil
	}
}

// Developer setup actions.

func installDevTools() menu.Action {
	return func(s *menu.Session) error {
		mgr := devtools.NewManager()
		if err := mgr.CheckPackageManager(context.Background()); err != nil {
			return err
		}

		s.Printf("Available tools: %s\n", strings.Join(devtools.Tools(), ", "))
		list, err := s.Prompt("Tools to install (space separated)")
		if err != nil {
			return err
		}

		for _, r := range mgr.Install(context.Background(), strings.Fields(list)...) {
			if r.Err != nil {
				s.Printf("x %s: %v\n", r.Tool, r.Err)
			} else {
				s.Printf("+ %s installed\n", r.Tool)
			}
		}
		return nil
	}
}

func uninstallApp() menu.Action {
	return func(s *menu.Session) error {
		name, err := s.Prompt("Application name")
		if err != nil {
			return err
		}
		ok, err := s.Confirm("Uninstall " + name + "?")
		if err != nil {
			return err
		}
		if !ok {
			return menu.ErrAborted
		}

		if err := devtools.NewManager().UninstallApp(context.Background(), name); err != nil {
			return err
		}
		s.Printf("Uninstalled %s.\n", name)
		return nil
	}
}
