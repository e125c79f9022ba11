// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	MissingDescriptorId Id = iota + 1
	InvalidDescriptorId
	MalformedPatchConfigId
	MalformedAccessWidenerId
	NamespaceUnavailableId
	MalformedClassId
	ArchiveUnreadableId
	TransformFailedId
	CacheIOId
	MappingsLoadFailedId
	ConfigLoadFailedId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // format references for the files involved
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	missingDescriptorIssue = &Issue{
		id: MissingDescriptorId,
		mdMsg: `
# Not a Fabric mod

The archive has no ` + "`fabric.mod.json`" + ` at its root, so it was skipped.

## Things you can try:
- Nothing, if the jar is a plain library or a mod for another loader
- Exclude it from scans to silence this message:
~~~
$ modbridge scan --exclude 'somelib-*.jar'
~~~`,
		docLinks: []HttpLink{"https://fabricmc.net/wiki/documentation:fabric_mod_json"},
	}

	invalidDescriptorIssue = &Issue{
		id: InvalidDescriptorId,
		mdMsg: `
# Invalid mod descriptor!

The archive's ` + "`fabric.mod.json`" + ` does not match the descriptor format.

## Common issues:
- Missing ` + "`id`" + ` or ` + "`version`" + `
- A mod id with upper-case letters or spaces
- ` + "`mixins`" + ` entries that are neither strings nor {config, environment} objects

## Things you can try:
- Check the error message above for the offending field
- Ask the mod author for a fixed release`,
		docLinks: []HttpLink{"https://fabricmc.net/wiki/documentation:fabric_mod_json"},
	}

	malformedPatchConfigIssue = &Issue{
		id: MalformedPatchConfigId,
		mdMsg: `
# Malformed mixin configuration!

A mixin configuration declared by the mod could not be read.

## Common issues:
- Invalid JSON
- ` + "`mixins`" + `, ` + "`client`" + ` or ` + "`server`" + ` not being a list of class names

## Things you can try:
- Check the configuration named in the error message
- Ask the mod author for a fixed release`,
	}

	malformedAccessWidenerIssue = &Issue{
		id: MalformedAccessWidenerId,
		mdMsg: `
# Malformed access widener!

The access widener declared by the mod could not be parsed.

## Common issues:
- Missing ` + "`accessWidener v1 <namespace>`" + ` header
- Unknown access or target kind
- Class names using '.' instead of '/'

## Things you can try:
- Check the line number in the error message`,
		docLinks: []HttpLink{"https://fabricmc.net/wiki/tutorial:accesswideners"},
	}

	namespaceUnavailableIssue = &Issue{
		id: NamespaceUnavailableId,
		mdMsg: `
# Mapping namespace unavailable!

The mappings do not provide a namespace the remap needs: the configured
source or target, the reference map namespace, or the namespace named in
the mod's ` + "`Fabric-Mapping-Namespace`" + ` manifest attribute.

## Things you can try:
- List the namespaces in the header of your mappings file
- Point ` + "`mappings`" + ` at a file that has every namespace:
~~~
$ modbridge config show
~~~`,
		docLinks: []HttpLink{"https://fabricmc.net/wiki/documentation:tiny2"},
	}

	malformedClassIssue = &Issue{
		id: MalformedClassId,
		mdMsg: `
# Malformed class file!

A ` + "`.class`" + ` entry of the archive could not be decoded.

## Things you can try:
- Verify the archive is not corrupted by re-downloading the mod
- Report the entry named in the error message`,
	}

	archiveUnreadableIssue = &Issue{
		id: ArchiveUnreadableId,
		mdMsg: `
# Archive unreadable!

The file is not a valid jar (zip) archive.

## Things you can try:
- Re-download the mod
- Remove partially downloaded files from the mods directory`,
	}

	transformFailedIssue = &Issue{
		id: TransformFailedId,
		mdMsg: `
# Remapping failed!

A stage of the remap pipeline rejected an entry of the archive. No output
was written for this mod.

## Things you can try:
- Run with verbose mode to see the stage and entry:
~~~
$ modbridge --verbose remap <jar>
~~~`,
	}

	cacheIOIssue = &Issue{
		id: CacheIOId,
		mdMsg: `
# Cache unavailable!

The remap cache could not be read or written. Remapped archives are still
produced but will be rebuilt on every run.

## Things you can try:
- Check the permissions of the cache directory
- Point ` + "`cache_dir`" + ` somewhere writable`,
	}

	mappingsLoadFailedIssue = &Issue{
		id: MappingsLoadFailedId,
		mdMsg: `
# Failed to load mappings!

The mappings file could not be read as Tiny v1 or v2.

## Things you can try:
- Check the ` + "`mappings`" + ` path in your configuration
- Make sure the file is an uncompressed ` + "`.tiny`" + ` file`,
		docLinks: []HttpLink{"https://fabricmc.net/wiki/documentation:tiny2"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file is invalid.

## Things you can try:
- Check the error message above for the offending field
- Show the effective configuration:
~~~
$ modbridge config show
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

You don't have permission to read a mod or write the cache.

## Things you can try:
- Check file/directory permissions of the mods and cache directories
- Run modbridge as the user that owns the game directory`,
	}

	issues = map[Id]*Issue{
		missingDescriptorIssue.Id():      missingDescriptorIssue,
		invalidDescriptorIssue.Id():      invalidDescriptorIssue,
		malformedPatchConfigIssue.Id():   malformedPatchConfigIssue,
		malformedAccessWidenerIssue.Id(): malformedAccessWidenerIssue,
		namespaceUnavailableIssue.Id():   namespaceUnavailableIssue,
		malformedClassIssue.Id():         malformedClassIssue,
		archiveUnreadableIssue.Id():      archiveUnreadableIssue,
		transformFailedIssue.Id():        transformFailedIssue,
		cacheIOIssue.Id():                cacheIOIssue,
		mappingsLoadFailedIssue.Id():     mappingsLoadFailedIssue,
		configLoadFailedIssue.Id():       configLoadFailedIssue,
		permissionDeniedIssue.Id():       permissionDeniedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	values := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		values = append(values, i)
	}
	slices.SortFunc(values, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}
