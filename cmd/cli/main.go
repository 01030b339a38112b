package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/dream2503/chunkdrive/config"
	"github.com/dream2503/chunkdrive/internal/drive"
	"github.com/dream2503/chunkdrive/internal/manifest"
	"github.com/dream2503/chunkdrive/internal/transport"
	"github.com/dream2503/chunkdrive/pkg/env"
	"github.com/dream2503/chunkdrive/pkg/logging"
)

func main() {

	env.LoadEnv()
	logging.InitLogger(false, "")

	app := &cli.App{
		Name:  "chunkdrive",
		Usage: "Store large files as content-addressed chunks behind a size-limited blob transport",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "owner",
				Aliases: []string{"o"},
				Usage:   "drive owner the operation runs as",
				Value:   env.GetEnv("CHUNKDRIVE_OWNER", "default"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "verbose logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "upload",
				Aliases:   []string{"u"},
				Usage:     "Upload files, or 'all' for every file in the upload folder",
				ArgsUsage: "<file> [file2 ...] | all",
				Action:    runUpload,
			},
			{
				Name:      "download",
				Aliases:   []string{"d"},
				Usage:     "Download files into the download folder, or 'all' for every stored file",
				ArgsUsage: "<filename> [filename2 ...] | all",
				Action:    runDownload,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove stored files and their chunks, or 'all' to empty the drive",
				ArgsUsage: "<filename> [filename2 ...] | all",
				Action:    runRemove,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List stored files",
				Action:  runList,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logging.Log.Fatal(err)
	}
}

// openDrive loads configuration and wires the transport and manifest store
// into an orchestrator. The returned closer releases the manifest DB.
func openDrive(c *cli.Context) (*drive.Drive, func(), error) {
	logging.InitLogger(c.Bool("debug"), env.GetEnv("CHUNKDRIVE_LOG", ""))
	config.LoadConfig(".")

	blobs, err := transport.NewLocalTransport(config.Config.BlobPath)
	if err != nil {
		return nil, nil, err
	}

	manifests, err := manifest.OpenStore(config.Config.MetadataPath)
	if err != nil {
		return nil, nil, err
	}

	d := drive.NewDrive(blobs, manifests, logging.Log, config.Config.MaxChunkSize, config.Config.Compression)
	closer := func() {
		if err := manifests.Close(); err != nil {
			logging.Log.Warnf("failed to close manifest store: %v", err)
		}
	}
	return d, closer, nil
}

func runUpload(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("Usage: chunkdrive upload <file> [file2 ...] | all", 1)
	}

	d, closer, err := openDrive(c)
	if err != nil {
		return err
	}
	defer closer()

	owner := c.String("owner")
	paths := c.Args().Slice()

	if containsAll(paths) {
		paths, err = listUploadFolder()
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return cli.Exit(fmt.Sprintf("📂 The upload folder %s is empty.", config.Config.UploadPath), 1)
		}
	}

	var failed []string
	for _, path := range paths {
		if err := uploadOne(d, owner, path); err != nil {
			logging.Log.Errorf("❌ Failed to upload %s: %v", path, err)
			failed = append(failed, path)
			continue
		}
	}

	if len(failed) > 0 {
		return cli.Exit(fmt.Sprintf("⚠️ Failed to upload %d file(s): %v", len(failed), failed), 1)
	}
	return nil
}

func uploadOne(d *drive.Drive, owner, path string) error {
	// Bare filenames resolve against the upload folder first.
	if local := filepath.Join(config.Config.UploadPath, filepath.Base(path)); path == filepath.Base(path) {
		if _, err := os.Stat(local); err == nil {
			path = local
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	result, err := d.Upload(owner, filepath.Base(path), f, info.Size())
	if err != nil {
		return err
	}

	logging.Log.Infof("✅ Uploaded %s (%d chunk(s), %d bytes)", result.FileName, result.Chunks, result.Size)
	return nil
}

func runDownload(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("Usage: chunkdrive download <filename> [filename2 ...] | all", 1)
	}

	d, closer, err := openDrive(c)
	if err != nil {
		return err
	}
	defer closer()

	owner := c.String("owner")
	names := c.Args().Slice()

	if containsAll(names) {
		infos, err := d.List(owner)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			return cli.Exit("📁 Your drive is empty, nothing to download.", 1)
		}
		names = names[:0]
		for _, info := range infos {
			names = append(names, info.FileName)
		}
	}

	folder := filepath.Join(config.Config.DownloadPath, owner)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return err
	}

	var failed []string
	for _, name := range names {
		if err := downloadOne(d, owner, name, filepath.Join(folder, name)); err != nil {
			logging.Log.Errorf("❌ Failed to download %s: %v", name, err)
			failed = append(failed, name)
		}
	}

	if len(failed) > 0 {
		return cli.Exit(fmt.Sprintf("⚠️ Failed to download %d file(s): %v", len(failed), failed), 1)
	}
	return nil
}

func downloadOne(d *drive.Drive, owner, name, outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}

	result, err := d.Download(owner, name, out)
	closeErr := out.Close()
	if err != nil {
		// Never leave a partially written file behind.
		os.Remove(outPath)
		return err
	}
	if closeErr != nil {
		os.Remove(outPath)
		return closeErr
	}

	logging.Log.Infof("✅ Downloaded %s (%d chunk(s), %d bytes) to %s", result.FileName, result.Chunks, result.Size, outPath)
	return nil
}

func runRemove(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("Usage: chunkdrive remove <filename> [filename2 ...] | all", 1)
	}

	d, closer, err := openDrive(c)
	if err != nil {
		return err
	}
	defer closer()

	owner := c.String("owner")
	names := c.Args().Slice()

	if containsAll(names) {
		result, err := d.RemoveAll(owner)
		if err != nil {
			return err
		}
		if result.Files == 0 {
			logging.Log.Info("📁 Your drive is already empty.")
			return nil
		}
		logging.Log.Infof("🧹 Removed %d file(s), deleted %d chunk(s).", result.Files, result.ChunksDeleted)
		return nil
	}

	var failed []string
	for _, name := range names {
		result, err := d.Remove(owner, name)
		if err != nil {
			logging.Log.Errorf("❌ Failed to remove %s: %v", name, err)
			failed = append(failed, name)
			continue
		}
		logging.Log.Infof("🗑️ Removed %s (%d chunk(s) deleted).", name, result.ChunksDeleted)
	}

	if len(failed) > 0 {
		return cli.Exit(fmt.Sprintf("⚠️ Failed to remove %d file(s): %v", len(failed), failed), 1)
	}
	return nil
}

func runList(c *cli.Context) error {
	d, closer, err := openDrive(c)
	if err != nil {
		return err
	}
	defer closer()

	infos, err := d.List(c.String("owner"))
	if err != nil {
		return err
	}

	if len(infos) == 0 {
		fmt.Println("📁 Your drive is empty.")
		return nil
	}

	for _, info := range infos {
		fmt.Printf("%s\t%d chunk(s)\t%d bytes\n", info.FileName, info.Chunks, info.Size)
	}
	return nil
}

func listUploadFolder() ([]string, error) {
	dirEntries, err := os.ReadDir(config.Config.UploadPath)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range dirEntries {
		if !e.IsDir() {
			paths = append(paths, filepath.Join(config.Config.UploadPath, e.Name()))
		}
	}
	return paths, nil
}

func containsAll(args []string) bool {
	for _, a := range args {
		if a == "all" || a == "ALL" {
			return true
		}
	}
	return false
}
