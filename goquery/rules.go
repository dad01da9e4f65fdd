package goquery

import "github.com/fwojciec/docmirror"

var genericRules = []Rule{
	{".toc a, .table-of-contents a", docmirror.PriorityTOC, "toc"},
	{"nav a, [role=navigation] a, .nav a, .menu a, .navbar a", docmirror.PriorityNavigation, "nav"},
	{".sidebar a, aside a", docmirror.PriorityNavigation, "sidebar"},
	{"main a, article a, .content a, .doc-content a", docmirror.PriorityContent, "content"},
	{"footer a, .footer a", docmirror.PriorityFooter, "footer"},
}

// frameworkRules holds link rules for each supported documentation
// framework.
var frameworkRules = map[docmirror.Framework][]Rule{
	docmirror.FrameworkDocusaurus: {
		{".table-of-contents a", docmirror.PriorityTOC, "toc"},
		{".theme-doc-sidebar-container a", docmirror.PriorityNavigation, "sidebar"},
		{"nav.navbar a", docmirror.PriorityNavigation, "nav"},
		{"article a, main a", docmirror.PriorityContent, "content"},
		{"footer a", docmirror.PriorityFooter, "footer"},
	},
	docmirror.FrameworkMkDocs: {
		{".md-sidebar--secondary a, [data-md-component='toc'] a", docmirror.PriorityTOC, "toc"},
		{".md-nav--primary a, [data-md-component='navigation'] a", docmirror.PriorityNavigation, "nav"},
		{".md-content a, article a", docmirror.PriorityContent, "content"},
		{"footer a", docmirror.PriorityFooter, "footer"},
	},
	docmirror.FrameworkSphinx: {
		{".toctree-wrapper a, #localtoc a", docmirror.PriorityTOC, "toc"},
		{".wy-nav-side a, .wy-menu-vertical a, .sphinxsidebar a", docmirror.PriorityNavigation, "sidebar"},
		{".document a, .body a, article a", docmirror.PriorityContent, "content"},
		{"footer a", docmirror.PriorityFooter, "footer"},
	},
	docmirror.FrameworkNextra: {
		{".nextra-toc a", docmirror.PriorityTOC, "toc"},
		{".nextra-sidebar a, .nextra-navbar a", docmirror.PriorityNavigation, "sidebar"},
		{"main a, article a", docmirror.PriorityContent, "content"},
		{"footer a", docmirror.PriorityFooter, "footer"},
	},
	docmirror.FrameworkGitBook: {
		{"[data-testid='page.desktopTableOfContents'] a", docmirror.PriorityTOC, "toc"},
		{"[data-testid='space.sidebar'] a, [data-testid='space.header'] a", docmirror.PriorityNavigation, "sidebar"},
		{"[data-testid='page.contentEditor'] a, main a, article a", docmirror.PriorityContent, "content"},
		{"footer a", docmirror.PriorityFooter, "footer"},
	},
	docmirror.FrameworkVitePress: {
		{".VPDocAsideOutline a", docmirror.PriorityTOC, "toc"},
		{".VPSidebar a, .VPNav a", docmirror.PriorityNavigation, "sidebar"},
		{".VPDoc a, main a", docmirror.PriorityContent, "content"},
		{"footer a", docmirror.PriorityFooter, "footer"},
	},
	docmirror.FrameworkVuePress: {
		{".sidebar-links a, .sidebar a", docmirror.PriorityNavigation, "sidebar"},
		{".navbar a", docmirror.PriorityNavigation, "nav"},
		{".theme-default-content a, main a", docmirror.PriorityContent, "content"},
		{"footer a", docmirror.PriorityFooter, "footer"},
	},
}
