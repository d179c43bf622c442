package cdklogger

import (
	"fmt"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"
)

type level int

const (
	levelInfo level = iota
	levelWarning
	levelError
)

// LogInfo adds an INFO annotation to the construct. Annotations are printed by `cdk synth`.
func LogInfo(scope constructs.Construct, constructID string, format string, args ...interface{}) {
	annotate(scope, constructID, levelInfo, format, args...)
}

// LogWarning adds a WARNING annotation to the construct.
func LogWarning(scope constructs.Construct, constructID string, format string, args ...interface{}) {
	annotate(scope, constructID, levelWarning, format, args...)
}

// LogError adds an ERROR annotation to the construct. `cdk synth` fails on error annotations.
func LogError(scope constructs.Construct, constructID string, format string, args ...interface{}) {
	annotate(scope, constructID, levelError, format, args...)
}

func annotate(scope constructs.Construct, constructID string, lvl level, format string, args ...interface{}) {
	path := *scope.Node().Path()
	message := prefixed(path, constructID, fmt.Sprintf(format, args...))

	annotations := awscdk.Annotations_Of(scope)
	switch lvl {
	case levelWarning:
		annotations.AddWarning(jsii.String(message))
	case levelError:
		annotations.AddError(jsii.String(message))
	default:
		annotations.AddInfo(jsii.String(message))
	}
	zap.L().Debug(message, zap.String("construct", path))
}

// prefixed tags the message with constructID unless the construct path already ends with it.
func prefixed(path, constructID, message string) string {
	if constructID == "" || strings.HasSuffix(path, "/"+constructID) || path == constructID {
		return message
	}
	return fmt.Sprintf("[%s] %s", constructID, message)
}
