// Package tests provides the external test fixtures, downloaded on demand.
package tests

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"
)

// EnvVar must be set to 1 to run the tests relying on external fixtures.
const EnvVar = "SIXTYFIVE_SST"

var mu sync.Mutex

func testsDir() string {
	_, b, _, _ := runtime.Caller(0)
	return filepath.Dir(b)
}

func skipIfDisabled(tb testing.TB) {
	tb.Helper()
	if os.Getenv(EnvVar) != "1" {
		tb.Skipf("set %s=1 to run tests depending on external fixtures", EnvVar)
	}
}

func download(url, dst string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, resp.Body)
	return err
}

// download all 256 (one per opcode) SingleStepTests files into dest dir.
func downloadSingleStepTests(tb testing.TB, dest string) {
	const urlfmt = `https://raw.githubusercontent.com/SingleStepTests/65x02/main/nes6502/v1/%s.json`

	tempdir, err := os.MkdirTemp("", "singlestep.tests.*")
	if err != nil {
		tb.Fatal(err)
	}

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())

	for opcode := range 256 {
		opstr := fmt.Sprintf("%02x", opcode)
		url := fmt.Sprintf(urlfmt, opstr)

		g.Go(func() error {
			if err := download(url, filepath.Join(tempdir, opstr+".json")); err != nil {
				return err
			}
			tb.Log("downloaded", url)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		os.RemoveAll(tempdir)
		tb.Fatalf("failed to download all files: %s", err)
	}

	if err := os.Rename(tempdir, dest); err != nil {
		tb.Fatal(err)
	}

	tb.Log("renaming", tempdir, "to", dest)
}

// SingleStepTestsPath returns the directory holding the SingleStepTests
// nes6502 JSON files, one per opcode, downloading them if necessary.
func SingleStepTestsPath(tb testing.TB) string {
	tb.Helper()
	skipIfDisabled(tb)

	mu.Lock()
	defer mu.Unlock()

	dir := filepath.Join(testsDir(), "singlestep.tests")
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		tb.Log("singlestep.tests directory not found, downloading it...")
		downloadSingleStepTests(tb, dir)
		tb.Log("SingleStepTests downloaded in", dir)
	}
	return dir
}

// FunctionalTest describes Klaus Dormann 6502 functional test binary.
type FunctionalTest struct {
	Path    string
	Load    uint16 // load address
	Start   uint16 // entry point
	Success uint16 // address of the trap reached when all tests pass
}

// FunctionalTestBinary returns the 6502 functional test binary, downloading it
// if necessary.
func FunctionalTestBinary(tb testing.TB) FunctionalTest {
	tb.Helper()
	skipIfDisabled(tb)

	const url = `https://github.com/Klaus2m5/6502_65C02_functional_tests/raw/master/bin_files/6502_functional_test.bin`

	mu.Lock()
	defer mu.Unlock()

	path := filepath.Join(testsDir(), "6502_functional_test.bin")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		tb.Log("downloading", url)
		if err := download(url, path); err != nil {
			os.Remove(path)
			tb.Fatal(err)
		}
	}
	return FunctionalTest{
		Path:    path,
		Load:    0x0000,
		Start:   0x0400,
		Success: 0x3469,
	}
}
