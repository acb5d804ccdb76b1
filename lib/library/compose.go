// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package library

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/bootnet/lib/chainspec"
	"github.com/bureau-foundation/bootnet/lib/mixin"
	"github.com/bureau-foundation/bootnet/lib/value"
)

// ComposeFile is the generated compose file name.
const ComposeFile = "docker-compose.yml"

// ManagedLabel marks services generated by bootnet. Reconciliation
// keeps services without it.
const ManagedLabel = "io.bootnet.managed"

// Ports and container paths used by generated services.
const (
	p2pPort = 30333
	rpcPort = 9944

	containerSpec     = "/chain/spec.json"
	containerData     = "/data"
	containerNodeKey  = "/keys/node-key"
	containerKeystore = "/keystore"
)

// composeConfig is the config the compose generator injects.
type composeConfig struct {
	emptyImage string
	outputRoot string
}

// composeModule emits docker-compose.yml and specs/<chain>.json. The
// payload's file list is fixed by prev; the contents are lazy and read
// the injected config and the provisioned keys through final.
func (l *Library) composeModule(args value.Args) (value.Value, error) {
	prev, err := forceObject(args, mixin.ArgPrev)
	if err != nil {
		return nil, err
	}
	final := args[mixin.ArgFinal]

	chains, err := chainsOf(prev)
	if err != nil {
		return nil, err
	}

	files := value.NewObject()
	files.SetLazy(ComposeFile, func() (value.Value, error) {
		return l.composeFile(final)
	})
	for _, chain := range chains {
		if !chain.chain.Has("spec") {
			continue
		}
		chainName := chain.name
		files.SetLazy(specFile(chainName), func() (value.Value, error) {
			finalChain, err := lookupPath(final, "chains", chainName)
			if err != nil {
				return nil, err
			}
			raw, err := finalChain.Lookup("rawSpec")
			if err != nil {
				return nil, fmt.Errorf("chains.%s: %w", chainName, err)
			}
			data, err := value.MarshalIndent(raw, "  ")
			if err != nil {
				return nil, fmt.Errorf("chains.%s.rawSpec: %w", chainName, err)
			}
			return value.String(data), nil
		})
	}
	files.SetField(value.Field{
		Name:       ReconcilePrefix + ComposeFile,
		Value:      value.Eager(value.NewFunction("reconcile compose", []string{ReconcileCurrent, ReconcileGenerated}, reconcileComposeFunction)),
		Visibility: value.Hidden,
	})

	return outputNamespace(prev, ComposeOutput, value.Eager(files.Build())), nil
}

func specFile(chain string) string {
	return "specs/" + chain + ".json"
}

func (l *Library) composeFile(final *value.Lazy) (value.Value, error) {
	configObject, err := generatorConfig(final, ComposeOutput)
	if err != nil {
		return nil, err
	}
	config, err := parseComposeConfig(configObject)
	if err != nil {
		return nil, err
	}
	document, err := forceDocument(final)
	if err != nil {
		return nil, err
	}
	chains, err := chainsOf(document)
	if err != nil {
		return nil, err
	}

	services := value.NewObject()
	for _, chain := range chains {
		for _, node := range chain.nodes {
			service, err := l.composeService(config, chain, node)
			if err != nil {
				return nil, fmt.Errorf("chains.%s.nodes.%s: %w", node.chain, node.name, err)
			}
			services.Set(node.hostname, service)
		}
	}
	data, err := value.MarshalYAML(value.NewObject().Set("services", services.Build()).Build())
	if err != nil {
		return nil, err
	}
	return value.String(data), nil
}

func parseComposeConfig(obj *value.Object) (composeConfig, error) {
	var config composeConfig
	emptyImage, err := obj.Lookup("emptyImage")
	if err != nil {
		return config, err
	}
	if config.emptyImage, err = value.ExpectString(emptyImage, "emptyImage"); err != nil {
		return config, err
	}
	outputRoot, err := obj.Lookup("outputRoot")
	if err != nil {
		return config, err
	}
	if config.outputRoot, err = value.ExpectString(outputRoot, "outputRoot"); err != nil {
		return config, err
	}
	return config, nil
}

// composeService builds one node's service and applies the node's
// composeOverrides mixin to it.
func (l *Library) composeService(config composeConfig, chain chainEntry, node nodeEntry) (value.Value, error) {
	binValue, err := chain.chain.Lookup("bin")
	if err != nil {
		return nil, err
	}
	bin, err := chainspec.ParseFileLocation(binValue)
	if err != nil {
		return nil, fmt.Errorf("bin: %w", err)
	}
	keys, err := lookupObject(node.node, "keys")
	if err != nil {
		return nil, err
	}
	nodeFile, err := stringField(keys, "localNodeFile")
	if err != nil {
		return nil, err
	}
	keystoreDir, err := stringField(keys, "localKeystoreDir")
	if err != nil {
		return nil, err
	}

	command := []string{
		"--name=" + node.hostname,
		"--base-path=" + containerData,
		"--node-key-file=" + containerNodeKey,
		"--keystore-path=" + containerKeystore,
	}
	volumes := []string{
		hostPath(config.outputRoot, nodeFile) + ":" + containerNodeKey + ":ro",
		hostPath(config.outputRoot, keystoreDir) + ":" + containerKeystore + ":ro",
	}
	if chain.chain.Has("spec") {
		command = append(command, "--chain="+containerSpec)
		volumes = append(volumes, "./"+specFile(chain.name)+":"+containerSpec+":ro")
	}
	for _, peer := range chain.nodes {
		if peer.name == node.name {
			continue
		}
		peerID, err := nodeIdentity(peer)
		if err != nil {
			return nil, fmt.Errorf("bootnode %s: %w", peer.name, err)
		}
		command = append(command, fmt.Sprintf("--bootnodes=/dns/%s/tcp/%d/p2p/%s", peer.hostname, p2pPort, peerID))
	}
	if extra, ok, err := node.node.Get("extraArgs"); err != nil {
		return nil, err
	} else if ok {
		extraArgs, err := stringArray(extra, "extraArgs")
		if err != nil {
			return nil, err
		}
		command = append(command, extraArgs...)
	}

	service := value.NewObject()
	switch {
	case bin.DockerImage != "":
		service.Set("image", value.String(bin.DockerImage))
		if bin.Docker != "" {
			service.Set("entrypoint", value.Array{value.String(bin.Docker)})
		}
	case bin.Local != "":
		service.Set("image", value.String(config.emptyImage))
		service.Set("entrypoint", value.Array{value.String(bin.Local)})
		mounts, err := l.mounts()
		if err != nil {
			return nil, fmt.Errorf("listing host mounts: %w", err)
		}
		for _, mount := range mounts {
			volumes = append(volumes, mount+":"+mount+":ro")
		}
	default:
		return nil, chainspec.ErrBinaryNotSet
	}
	service.Set("hostname", value.String(node.hostname))
	service.Set("command", stringValues(command))
	service.Set("volumes", stringValues(volumes))
	service.Set("labels", value.NewObject().
		Set(ManagedLabel, value.String("true")).
		Set("io.bootnet.chain", value.String(chain.name)).
		Build())

	overrides, ok, err := node.node.Get("composeOverrides")
	if err != nil {
		return nil, err
	}
	if !ok {
		return service.Build(), nil
	}
	out, err := value.Call(mixin.Mixer(overrides), value.Args{mixin.ArgPrev: value.Eager(service.Build())}, false)
	if err != nil {
		return nil, fmt.Errorf("composeOverrides: %w", err)
	}
	return out, nil
}

func stringField(obj *value.Object, name string) (string, error) {
	v, err := obj.Lookup(name)
	if err != nil {
		return "", err
	}
	return value.ExpectString(v, name)
}

func stringValues(values []string) value.Array {
	out := make(value.Array, len(values))
	for i, s := range values {
		out[i] = value.String(s)
	}
	return out
}

// hostPath renders path for a compose volume, relative to the output
// root when both are absolute.
func hostPath(outputRoot, path string) string {
	relative, err := toRelative(outputRoot, path)
	if err != nil {
		return path
	}
	if !strings.HasPrefix(relative, ".") {
		relative = "./" + relative
	}
	return relative
}

func reconcileComposeFunction(args value.Args) (value.Value, error) {
	current, err := forceString(args, ReconcileCurrent)
	if err != nil {
		return nil, err
	}
	generated, err := forceString(args, ReconcileGenerated)
	if err != nil {
		return nil, err
	}
	out, err := reconcileCompose(current, generated)
	if err != nil {
		return nil, err
	}
	return value.String(out), nil
}

// reconcileCompose merges a newly generated compose file into the one
// on disk: generated services replace managed ones, services without
// the managed label are kept, and top-level sections the generator does
// not produce (networks, volumes) are preserved.
func reconcileCompose(current, generated string) (string, error) {
	var currentDocument, generatedDocument yaml.Node
	if err := yaml.Unmarshal([]byte(current), &currentDocument); err != nil {
		return "", fmt.Errorf("parsing existing %s: %w", ComposeFile, err)
	}
	if err := yaml.Unmarshal([]byte(generated), &generatedDocument); err != nil {
		return "", fmt.Errorf("parsing generated %s: %w", ComposeFile, err)
	}
	currentRoot := documentMapping(&currentDocument)
	generatedRoot := documentMapping(&generatedDocument)
	if currentRoot == nil || generatedRoot == nil {
		return generated, nil
	}

	if currentServices := mappingValue(currentRoot, "services"); currentServices != nil && currentServices.Kind == yaml.MappingNode {
		generatedServices := mappingValue(generatedRoot, "services")
		if generatedServices == nil {
			generatedServices = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			generatedRoot.Content = append(generatedRoot.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "services"}, generatedServices)
		}
		for i := 0; i+1 < len(currentServices.Content); i += 2 {
			name, service := currentServices.Content[i], currentServices.Content[i+1]
			if managedService(service) || mappingValue(generatedServices, name.Value) != nil {
				continue
			}
			generatedServices.Content = append(generatedServices.Content, name, service)
		}
	}
	for i := 0; i+1 < len(currentRoot.Content); i += 2 {
		key := currentRoot.Content[i]
		if key.Value == "services" || mappingValue(generatedRoot, key.Value) != nil {
			continue
		}
		generatedRoot.Content = append(generatedRoot.Content, key, currentRoot.Content[i+1])
	}

	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)
	if err := encoder.Encode(&generatedDocument); err != nil {
		return "", err
	}
	if err := encoder.Close(); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

func documentMapping(document *yaml.Node) *yaml.Node {
	if document.Kind != yaml.DocumentNode || len(document.Content) == 0 {
		return nil
	}
	root := document.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}
	return root
}

func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// managedService reports whether a service carries ManagedLabel, in
// either the mapping or the list form of labels.
func managedService(service *yaml.Node) bool {
	labels := mappingValue(service, "labels")
	if labels == nil {
		return false
	}
	switch labels.Kind {
	case yaml.MappingNode:
		return mappingValue(labels, ManagedLabel) != nil
	case yaml.SequenceNode:
		for _, label := range labels.Content {
			if label.Value == ManagedLabel || strings.HasPrefix(label.Value, ManagedLabel+"=") {
				return true
			}
		}
	}
	return false
}
