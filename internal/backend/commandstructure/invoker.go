package commandstructure

import (
	"fmt"
	"log/slog"
	"time"
)

// CommandInvoker executes a sequence of commands on image data, each command
// consuming the output of the previous one. It is itself a Command so chains
// can be nested.
type CommandInvoker struct {
	name     string
	commands []Command
}

// NewCommandInvoker creates a new command invoker
func NewCommandInvoker(name string, commands []Command) *CommandInvoker {
	return &CommandInvoker{
		name:     name,
		commands: commands,
	}
}

// Name returns the name of the chain
func (i *CommandInvoker) Name() string {
	return i.name
}

// Execute applies all commands in sequence to the image data.
// A panicking command is reported as an error and aborts the chain.
func (i *CommandInvoker) Execute(imageData []byte) ([]byte, error) {
	start := time.Now()

	slog.Debug("starting command chain",
		"chain", i.name,
		"command_count", len(i.commands),
		"input_size_bytes", len(imageData))

	if len(i.commands) == 0 {
		slog.Debug("no commands to execute, returning original image", "chain", i.name)
		return imageData, nil
	}

	currentData := imageData

	for idx, command := range i.commands {
		commandStart := time.Now()

		processedData, err := runCommand(command, currentData)
		if err != nil {
			slog.Warn("command execution failed",
				"chain", i.name,
				"index", idx,
				"command_name", command.Name(),
				"error", err,
				"input_size_bytes", len(currentData))
			return nil, fmt.Errorf("command %s (index %d) failed: %w", command.Name(), idx, err)
		}

		slog.Debug("command completed",
			"chain", i.name,
			"index", idx,
			"command_name", command.Name(),
			"duration_ms", time.Since(commandStart).Milliseconds(),
			"input_size_bytes", len(currentData),
			"output_size_bytes", len(processedData))

		currentData = processedData
	}

	slog.Info("command chain completed",
		"chain", i.name,
		"total_duration_ms", time.Since(start).Milliseconds(),
		"command_count", len(i.commands),
		"input_size_bytes", len(imageData),
		"final_size_bytes", len(currentData))

	return currentData, nil
}

// Run executes a single command and converts a panic into an error
func Run(command Command, imageData []byte) ([]byte, error) {
	return runCommand(command, imageData)
}

func runCommand(command Command, imageData []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("command %s panicked: %v", command.Name(), r)
		}
	}()
	return command.Execute(imageData)
}
