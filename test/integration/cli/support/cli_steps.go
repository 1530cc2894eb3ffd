package support

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/codescan/cmd/codescan/cmd"
)

// iRunCodescan executes the command line in-process.
func (testCtx *TestContext) iRunCodescan(args string) error {
	args = testCtx.substitute(args)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var out, errOut bytes.Buffer
	testCtx.LastExitCode = cmd.ExecuteContext(ctx, strings.Fields(args), &out, &errOut)
	testCtx.LastOutput = out.String()
	testCtx.LastStderr = errOut.String()
	return nil
}

func (testCtx *TestContext) theExitCodeShouldBe(code int) error {
	if testCtx.LastExitCode != code {
		return fmt.Errorf("exit code %d, expected %d\nstdout: %s\nstderr: %s",
			testCtx.LastExitCode, code, testCtx.LastOutput, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expected string) error {
	expected = testCtx.substitute(expected)
	if !strings.Contains(testCtx.LastOutput, expected) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expected, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) everyOutputLineShouldBeValidJSON() error {
	lines := strings.Split(strings.TrimSpace(testCtx.LastOutput), "\n")
	for i, line := range lines {
		if !json.Valid([]byte(line)) {
			return fmt.Errorf("line %d is not valid JSON: %s", i+1, line)
		}
	}
	return nil
}

func (testCtx *TestContext) theErrorShouldMention(expected string) error {
	if !strings.Contains(strings.ToLower(testCtx.LastStderr), strings.ToLower(expected)) {
		return fmt.Errorf("error output does not mention '%s'\nActual: %s", expected, testCtx.LastStderr)
	}
	return nil
}

// RegisterCLISteps registers command line steps.
func (testCtx *TestContext) RegisterCLISteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run codescan with "([^"]*)"$`, testCtx.iRunCodescan)
	sc.Step(`^the exit code should be (\d+)$`, testCtx.theExitCodeShouldBe)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^every output line should be valid JSON$`, testCtx.everyOutputLineShouldBeValidJSON)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
}
