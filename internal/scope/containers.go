package scope

// containerSpec describes how one grammar node type maps onto the normalized
// container model.
type containerSpec struct {
	kind Kind
	// anonymous marks function-like nodes that never carry a declared name
	anonymous bool
	// declarator marks C-family definitions whose name hides inside nested
	// declarator wrappers instead of a "name" field
	declarator bool
}

// containerTables normalizes grammar-specific node types to container kinds.
// Only node types listed here appear in a scope chain.
var containerTables = map[Language]map[string]containerSpec{
	LangGo: {
		"function_declaration": {kind: KindFunction},
		"method_declaration":   {kind: KindMethod},
		"func_literal":         {kind: KindFunction, anonymous: true},
		"type_declaration":     {kind: KindType},
	},
	LangJavaScript: {
		"function_declaration":           {kind: KindFunction},
		"generator_function_declaration": {kind: KindFunction},
		"function_expression":            {kind: KindFunction, anonymous: true},
		"arrow_function":                 {kind: KindFunction, anonymous: true},
		"method_definition":              {kind: KindMethod},
		"class_declaration":              {kind: KindClass},
		"class":                          {kind: KindClass},
	},
	LangTypeScript: {
		"function_declaration":           {kind: KindFunction},
		"generator_function_declaration": {kind: KindFunction},
		"function_expression":            {kind: KindFunction, anonymous: true},
		"arrow_function":                 {kind: KindFunction, anonymous: true},
		"method_definition":              {kind: KindMethod},
		"class_declaration":              {kind: KindClass},
		"abstract_class_declaration":     {kind: KindClass},
		"interface_declaration":          {kind: KindInterface},
		"enum_declaration":               {kind: KindEnum},
		"module":                         {kind: KindNamespace},
		"internal_module":                {kind: KindNamespace},
	},
	LangPython: {
		"function_definition": {kind: KindFunction},
		"class_definition":    {kind: KindClass},
		"lambda":              {kind: KindFunction, anonymous: true},
	},
	LangJava: {
		"method_declaration":      {kind: KindMethod},
		"constructor_declaration": {kind: KindMethod},
		"class_declaration":       {kind: KindClass},
		"interface_declaration":   {kind: KindInterface},
		"enum_declaration":        {kind: KindEnum},
		"lambda_expression":       {kind: KindFunction, anonymous: true},
	},
	LangC: {
		"function_definition": {kind: KindFunction, declarator: true},
		"struct_specifier":    {kind: KindType},
		"union_specifier":     {kind: KindType},
		"enum_specifier":      {kind: KindEnum},
	},
	LangCpp: {
		"function_definition":  {kind: KindFunction, declarator: true},
		"class_specifier":      {kind: KindClass},
		"struct_specifier":     {kind: KindType},
		"union_specifier":      {kind: KindType},
		"enum_specifier":       {kind: KindEnum},
		"namespace_definition": {kind: KindNamespace},
		"lambda_expression":    {kind: KindFunction, anonymous: true},
	},
	LangCSharp: {
		"method_declaration":       {kind: KindMethod},
		"constructor_declaration":  {kind: KindMethod},
		"local_function_statement": {kind: KindFunction},
		"class_declaration":        {kind: KindClass},
		"struct_declaration":       {kind: KindType},
		"record_declaration":       {kind: KindClass},
		"interface_declaration":    {kind: KindInterface},
		"enum_declaration":         {kind: KindEnum},
		"namespace_declaration":    {kind: KindNamespace},
		"lambda_expression":        {kind: KindFunction, anonymous: true},
	},
	LangRust: {
		"function_item":      {kind: KindFunction},
		"impl_item":          {kind: KindType},
		"struct_item":        {kind: KindType},
		"enum_item":          {kind: KindEnum},
		"trait_item":         {kind: KindInterface},
		"mod_item":           {kind: KindModule},
		"closure_expression": {kind: KindFunction, anonymous: true},
	},
	LangRuby: {
		"method":           {kind: KindMethod},
		"singleton_method": {kind: KindMethod},
		"class":            {kind: KindClass},
		"module":           {kind: KindModule},
		"lambda":           {kind: KindFunction, anonymous: true},
	},
	LangPHP: {
		"function_definition":                    {kind: KindFunction},
		"method_declaration":                     {kind: KindMethod},
		"class_declaration":                      {kind: KindClass},
		"trait_declaration":                      {kind: KindClass},
		"interface_declaration":                  {kind: KindInterface},
		"enum_declaration":                       {kind: KindEnum},
		"namespace_definition":                   {kind: KindNamespace},
		"anonymous_function_creation_expression": {kind: KindFunction, anonymous: true},
		"arrow_function":                         {kind: KindFunction, anonymous: true},
	},
	LangSwift: {
		"function_declaration": {kind: KindFunction},
		"class_declaration":    {kind: KindClass},
		"protocol_declaration": {kind: KindInterface},
		"lambda_literal":       {kind: KindFunction, anonymous: true},
	},
	LangKotlin: {
		"function_declaration": {kind: KindFunction},
		"class_declaration":    {kind: KindClass},
		"object_declaration":   {kind: KindClass},
		"anonymous_function":   {kind: KindFunction, anonymous: true},
		"lambda_literal":       {kind: KindFunction, anonymous: true},
	},
	LangBash: {
		"function_definition": {kind: KindFunction},
	},
}

// identifierKinds are node types accepted by the child-scan step of the name
// extraction ladder. "constant" covers Ruby class names, "word" covers Bash
// function names, "type_identifier" covers Rust impl targets and Kotlin
// classes.
var identifierKinds = map[string]bool{
	"identifier":          true,
	"simple_identifier":   true,
	"type_identifier":     true,
	"field_identifier":    true,
	"property_identifier": true,
	"constant":            true,
	"word":                true,
	"name":                true,
}
