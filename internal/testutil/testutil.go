package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
)

const (
	TestAccount = "123456789012"
	TestRegion  = "us-east-1"
)

// TmpFile writes content to a file inside the test's temp dir and returns its path.
func TmpFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("tmp-file: %v", err)
	}
	return path
}

// NewApp returns an app with the given context values.
func NewApp(context map[string]interface{}) awscdk.App {
	if context == nil {
		context = map[string]interface{}{}
	}
	return awscdk.NewApp(&awscdk.AppProps{Context: &context})
}

// NewStack returns a stack pinned to the test account and region.
func NewStack(t *testing.T, context map[string]interface{}) awscdk.Stack {
	t.Helper()
	return awscdk.NewStack(NewApp(context), jsii.String("TestStack"), &awscdk.StackProps{
		Env: &awscdk.Environment{
			Account: jsii.String(TestAccount),
			Region:  jsii.String(TestRegion),
		},
	})
}

// Properties returns the Properties block of every resource of the given type
// matching props, keyed by logical id.
func Properties(template assertions.Template, resourceType string, props map[string]interface{}) map[string]map[string]interface{} {
	var filter interface{}
	if props != nil {
		filter = map[string]interface{}{"Properties": props}
	}
	found := template.FindResources(jsii.String(resourceType), filter)
	out := map[string]map[string]interface{}{}
	if found == nil {
		return out
	}
	for logicalID, raw := range *found {
		out[logicalID] = asMap(asMap(raw)["Properties"])
	}
	return out
}

// asMap unwraps a decoded JSON object, which jsii hands back either as a map or as
// a pointer to one.
func asMap(v interface{}) map[string]interface{} {
	switch m := v.(type) {
	case map[string]interface{}:
		return m
	case *map[string]interface{}:
		if m != nil {
			return *m
		}
	}
	return nil
}
