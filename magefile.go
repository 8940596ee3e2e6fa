//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binaryName = "poetcard"

// Default target to run when none is specified
var Default = Build

// Build compiles the poetcard binary
func Build() error {
	fmt.Println("Building", binaryName)
	return sh.RunV("go", "build", "-o", binaryName, "./cmd/poetcard")
}

// Test runs all unit tests
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet on all packages
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Check runs vet and the tests
func Check() {
	mg.SerialDeps(Vet, Test)
}

// Install builds and copies the binary to ~/go/bin
func Install() error {
	mg.Deps(Build)

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	target := filepath.Join(home, "go", "bin", binaryName)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	fmt.Println("Installing to", target)
	return sh.Copy(target, binaryName)
}

// Clean removes build artifacts
func Clean() error {
	return sh.Rm(binaryName)
}
