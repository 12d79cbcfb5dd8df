package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	rootshrink "github.com/rpitools/rootshrink"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

var rootCmd = func() *cobra.Command {
	var (
		rootSize    string
		swapSize    string
		varSize     string
		device      string
		dryRun      bool
		force       bool
		forceLive   bool
		yes         bool
		installDeps bool
		geometry    string
	)
	cmd := &cobra.Command{
		Use:   "rootshrink",
		Short: "Shrink a boot disk's root filesystem and split out swap, /var and /home",
		Long: `Shrink a boot disk's root filesystem and repartition the freed space into
  an optional swap partition, an optional /var partition (btrfs), and a /home
  partition (ext4) that takes all remaining space. Existing /var and /home data
  is migrated into the new partitions and /etc/fstab on the new root is updated.

  The root size must lie between 8G and 64G, and /home must end up with at
  least half the disk, or the run is refused before any change is made.

  Swap and a separate /var are refused on SD cards (mmcblk devices) unless
  --force is given. Operating on the disk that holds the currently mounted
  root filesystem is refused unless --force-live is given.

  Example usage:
    rootshrink -d /dev/sda -r 16G -s 4G -v 8G
    rootshrink -d mmcblk0 -r 8G --dry-run

  There is no automatic rollback: a failure mid-pipeline leaves the disk in
  the last completed step's state, and the transcript tells you which step
  that was.
  `,
		Run: func(cmd *cobra.Command, args []string) {
			if unix.Geteuid() != 0 {
				logrus.Fatal("rootshrink must run as root, it repartitions disks")
			}
			opts := rootshrink.Options{
				Device:      device,
				RootSize:    rootSize,
				SwapSize:    swapSize,
				VarSize:     varSize,
				DryRun:      dryRun,
				Force:       force,
				ForceLive:   forceLive,
				InstallDeps: installDeps,
			}
			switch geometry {
			case "parted":
				opts.Geometry = rootshrink.PartedSource{}
			case "diskfs":
				opts.Geometry = rootshrink.DiskfsSource{}
			default:
				logrus.Fatalf("unknown --geometry value %q, want parted or diskfs", geometry)
			}
			if !yes {
				opts.Confirm = confirmOnStdin
			}
			if err := rootshrink.Run(opts); err != nil {
				logrus.Fatalf("repartition failed: %v", err)
			}
		},
	}
	cmd.Flags().StringVarP(&rootSize, "root-size", "r", "", "Root filesystem size (e.g. 8G, 16G); min 8G, max 64G")
	cmd.Flags().StringVarP(&swapSize, "swap-size", "s", "", "Swap partition size (e.g. 4G); refused on SD cards without --force")
	cmd.Flags().StringVarP(&varSize, "var-size", "v", "", "/var partition size (e.g. 8G); refused on SD cards without --force")
	cmd.Flags().StringVarP(&device, "device", "d", "", "Target device (e.g. /dev/mmcblk0, /dev/sda)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan and print the layout without making any changes")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Allow swap/var partitions on SD cards")
	cmd.Flags().BoolVar(&forceLive, "force-live", false, "Allow operating on the disk holding the live root filesystem")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVar(&installDeps, "install-deps", false, "Install missing collaborator tools with apt-get or yum")
	cmd.Flags().StringVar(&geometry, "geometry", "parted", "Partition-table reader: parted (text report) or diskfs (direct GPT read)")
	_ = cmd.MarkFlagRequired("root-size")
	_ = cmd.MarkFlagRequired("device")
	return cmd
}

func confirmOnStdin(layout *rootshrink.PartitionLayout) (bool, error) {
	fmt.Println("\nWARNING: this will modify your disk partitions!")
	fmt.Print("Type 'yes' to continue, anything else to abort: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(line) == "yes", nil
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		logrus.Fatal(err)
	}
}
